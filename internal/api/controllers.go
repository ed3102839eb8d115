package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"backtest-core/internal/dispatch"
	"backtest-core/internal/events"
	"backtest-core/internal/ledger"
	"backtest-core/internal/market"
	"backtest-core/internal/rl"
	"backtest-core/internal/tradeapi"
	"backtest-core/pkg/db"
)

type taskRequest struct {
	ID            string             `json:"id"`
	Kind          string             `json:"kind"`
	Code          string             `json:"code"`
	Candles       []market.Candle    `json:"candles"`
	Params        map[string]float64 `json:"params"`
	MaxLookback   int                `json:"maxLookback"`
	RLConfig      *rl.Config         `json:"rlConfig"`
	Preset        string             `json:"preset"`
	CustomEnvCode string             `json:"customEnvCode"`
}

type submitRequest struct {
	PoolSize int           `json:"poolSize"`
	Tasks    []taskRequest `json:"tasks"`
}

type taskResponse struct {
	TaskID   string            `json:"taskId"`
	Signals  []tradeapi.Signal `json:"signals,omitempty"`
	Training *rl.Result        `json:"training,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// submitTasks runs a batch synchronously and returns one result per task
// in submission order. Persistence failures are logged, never surfaced as
// task failures.
func (s *Server) submitTasks(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Tasks) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no tasks submitted"})
		return
	}

	poolSize := req.PoolSize
	if poolSize <= 0 {
		poolSize = s.PoolSize
	}

	ctx := context.Background()
	tasks := make([]dispatch.Task, len(req.Tasks))
	for i, tr := range req.Tasks {
		id := tr.ID
		if id == "" {
			id = uuid.NewString()
		}
		task := dispatch.Task{
			ID:            id,
			Kind:          dispatch.Kind(tr.Kind),
			Candles:       tr.Candles,
			Code:          tr.Code,
			Params:        tr.Params,
			MaxLookback:   tr.MaxLookback,
			RL:            s.resolveTrainerConfig(tr),
			CustomEnvCode: tr.CustomEnvCode,
		}
		if s.Bus != nil {
			s.Bus.Publish(events.EventTaskSubmitted, struct {
				TaskID string `json:"taskId"`
				Kind   string `json:"kind"`
			}{id, tr.Kind})
		}
		if s.Store != nil {
			if err := s.Store.CreateTask(ctx, id, tr.Kind); err != nil {
				log.Printf("persist task %s: %v", id, err)
			}
			task.OnEpisode = func(stats rl.EpisodeStats) {
				err := s.Store.SaveEpisode(ctx, db.EpisodeRow{
					TaskID:      id,
					Episode:     stats.Episode,
					TotalReward: stats.TotalReward,
					Epsilon:     stats.Epsilon,
					WinRate:     stats.WinRate,
				})
				if err != nil {
					log.Printf("persist episode for %s: %v", id, err)
				}
			}
		}
		tasks[i] = task
	}

	cancelled := c.Request.Context().Err
	results := s.Dispatcher.Run(tasks, poolSize, nil, func() bool {
		// Stop claiming new tasks if the client went away.
		return cancelled() != nil
	})

	out := make([]taskResponse, len(results))
	for i, r := range results {
		out[i] = taskResponse{TaskID: r.TaskID}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		} else {
			out[i].Signals = r.Signals
			out[i].Training = r.Training
		}
		s.persistResult(ctx, r)
	}

	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (s *Server) resolveTrainerConfig(tr taskRequest) *rl.Config {
	if tr.RLConfig != nil {
		return tr.RLConfig
	}
	if tr.Preset != "" {
		if cfg, ok := s.Presets[tr.Preset]; ok {
			return &cfg
		}
		log.Printf("unknown training preset %q, using defaults", tr.Preset)
	}
	return nil
}

func (s *Server) persistResult(ctx context.Context, r dispatch.Result) {
	if s.Store == nil {
		return
	}

	status := db.StatusDone
	errMsg := ""
	policy := ""
	switch {
	case r.Err == dispatch.ErrCanceled:
		status = db.StatusCanceled
		errMsg = r.Err.Error()
	case r.Err != nil:
		status = db.StatusFailed
		errMsg = r.Err.Error()
	case r.Training != nil:
		policy = r.Training.PolicyCode
	}
	if err := s.Store.CompleteTask(ctx, r.TaskID, status, errMsg, policy); err != nil {
		log.Printf("persist result for %s: %v", r.TaskID, err)
	}

	if len(r.Signals) > 0 {
		rows := make([]db.SignalRow, len(r.Signals))
		for i, sig := range r.Signals {
			rows[i] = db.SignalRow{
				TaskID:     r.TaskID,
				Seq:        i,
				Time:       sig.Time,
				Action:     sig.Action,
				Price:      sig.Price,
				Size:       sig.Size,
				Reason:     sig.Reason,
				OrderID:    sig.OrderID,
				OrderType:  sig.OrderType,
				LimitPrice: sig.LimitPrice,
			}
		}
		if err := s.Store.SaveSignals(ctx, rows); err != nil {
			log.Printf("persist signals for %s: %v", r.TaskID, err)
		}
	}
}

func (s *Server) listTasks(c *gin.Context) {
	tasks, err := s.Store.ListTasks(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) getTask(c *gin.Context) {
	task, err := s.Store.GetTask(c.Request.Context(), c.Param("id"))
	if err == db.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) getTaskSignals(c *gin.Context) {
	signals, err := s.Store.GetSignals(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

func (s *Server) getTaskEpisodes(c *gin.Context) {
	episodes, err := s.Store.GetEpisodes(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"episodes": episodes})
}

// getTaskPerformance replays a task's stored signal log through the trade
// ledger with the configured execution frictions and reports the realized
// outcome.
func (s *Server) getTaskPerformance(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.Store.GetTask(c.Request.Context(), id); err == db.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	signals, err := s.Store.GetSignals(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	l := ledger.New(s.Costs)
	for _, sig := range signals {
		switch sig.Action {
		case tradeapi.ActionBuy, tradeapi.ActionSell:
			size := int(sig.Size)
			if size <= 0 {
				continue
			}
			l.Apply(sig.Action, sig.Price, size, sig.Time)
		case tradeapi.ActionCloseAll:
			l.CloseAll(sig.Price, sig.Time)
		}
		// CANCEL carries no execution.
	}

	c.JSON(http.StatusOK, gin.H{
		"taskId":      id,
		"position":    l.Position,
		"realizedPnl": l.RealizedPnL,
		"trades":      l.Trades,
	})
}

func (s *Server) getPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": s.Presets})
}
