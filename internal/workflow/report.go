package workflow

import (
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/repairfill/internal/protocol"
	"github.com/xkilldash9x/repairfill/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StageReport is the outcome of one stage of a run.
type StageReport struct {
	Action   protocol.Action `json:"action"`
	OK       bool            `json:"ok"`
	Attempts int             `json:"attempts"`
	Results  interface{}     `json:"results,omitempty"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Report records a whole run. Stages holds every stage that started, in order.
type Report struct {
	RunID      string        `json:"runId"`
	Kind       string        `json:"kind"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	OK         bool          `json:"ok"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Stages     []StageReport `json:"stages"`
}

func newReport(kind string) *Report {
	return &Report{RunID: uuid.NewString(), Kind: kind, StartedAt: time.Now()}
}

// Stage returns the last report for action.
func (r *Report) Stage(action protocol.Action) (StageReport, bool) {
	for i := len(r.Stages) - 1; i >= 0; i-- {
		if r.Stages[i].Action == action {
			return r.Stages[i], true
		}
	}
	return StageReport{}, false
}

// JSON encodes the report for storage and the wire.
func (r *Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// Record converts the report into a run history entry.
func (r *Report) Record() (store.RunRecord, error) {
	data, err := r.JSON()
	if err != nil {
		return store.RunRecord{}, err
	}
	return store.RunRecord{
		ID:         r.RunID,
		Kind:       r.Kind,
		OK:         r.OK,
		Status:     r.Status,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Report:     data,
	}, nil
}
