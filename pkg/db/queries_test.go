package db

import (
	"context"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	d, err := openForTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewStore(d)
}

func TestTaskLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, "t1", "RUN_STRATEGY"); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	task, err := s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Status != StatusPending || task.CompletedAt != nil {
		t.Fatalf("fresh task %+v, expected pending and incomplete", task)
	}

	if err := s.CompleteTask(ctx, "t1", StatusDone, "", ""); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	task, err = s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask after complete: %v", err)
	}
	if task.Status != StatusDone || task.CompletedAt == nil {
		t.Fatalf("completed task %+v", task)
	}
	if task.Error != "" || task.PolicyCode != "" {
		t.Fatalf("empty strings should persist as NULL: %+v", task)
	}
}

func TestCompleteTaskWithErrorAndPolicy(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, "t2", "TRAIN_RL"); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := s.CompleteTask(ctx, "t2", StatusFailed, "boom", "func Act() {}"); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	task, err := s.GetTask(ctx, "t2")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Status != StatusFailed || task.Error != "boom" || task.PolicyCode != "func Act() {}" {
		t.Fatalf("task %+v", task)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetTask(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("err=%v, expected ErrNotFound", err)
	}
}

func TestListTasks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.CreateTask(ctx, id, "RUN_STRATEGY"); err != nil {
			t.Fatalf("CreateTask %s: %v", id, err)
		}
	}

	tasks, err := s.ListTasks(ctx, 2)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("listed %d tasks with limit 2", len(tasks))
	}

	tasks, err = s.ListTasks(ctx, 0)
	if err != nil {
		t.Fatalf("ListTasks default limit: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("listed %d tasks, expected all 3", len(tasks))
	}
}

func TestSaveAndGetSignals(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, "t3", "RUN_STRATEGY"); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rows := []SignalRow{
		{TaskID: "t3", Seq: 0, Time: 100, Action: "BUY", Price: 10, Size: 1, OrderID: "ORD-1", OrderType: "MARKET"},
		{TaskID: "t3", Seq: 1, Time: 200, Action: "SELL", Price: 11, Size: 1, Reason: "exit", OrderID: "ORD-2", OrderType: "LIMIT", LimitPrice: 11},
	}
	if err := s.SaveSignals(ctx, rows); err != nil {
		t.Fatalf("SaveSignals: %v", err)
	}
	if err := s.SaveSignals(ctx, nil); err != nil {
		t.Fatalf("SaveSignals with empty log: %v", err)
	}

	got, err := s.GetSignals(ctx, "t3")
	if err != nil {
		t.Fatalf("GetSignals: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d signals, expected 2", len(got))
	}
	if got[0] != rows[0] || got[1] != rows[1] {
		t.Fatalf("roundtrip mismatch:\n got %+v\nwant %+v", got, rows)
	}
}

func TestSaveEpisodeUpsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, "t4", "TRAIN_RL"); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	first := EpisodeRow{TaskID: "t4", Episode: 5, TotalReward: 10, Epsilon: 0.5, WinRate: 0.4}
	if err := s.SaveEpisode(ctx, first); err != nil {
		t.Fatalf("SaveEpisode: %v", err)
	}
	update := first
	update.TotalReward = 12
	if err := s.SaveEpisode(ctx, update); err != nil {
		t.Fatalf("SaveEpisode upsert: %v", err)
	}

	got, err := s.GetEpisodes(ctx, "t4")
	if err != nil {
		t.Fatalf("GetEpisodes: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d episodes after upsert, expected 1", len(got))
	}
	if got[0].TotalReward != 12 {
		t.Fatalf("upsert did not replace: %+v", got[0])
	}
}
