package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue name for background jobs.
	QueueDefault = "default"

	// TaskBalanceScan sweeps cached party balances against ledger replay.
	TaskBalanceScan = "integrity:balance_scan"
	// TaskStockScan sweeps cached stock records against movement history.
	TaskStockScan = "integrity:stock_scan"
)

// BalanceScanPayload configures one balance sweep.
type BalanceScanPayload struct {
	// Repair rewrites drifted cached balances from the replayed history.
	Repair bool `json:"repair"`
}

// NewBalanceScanTask constructs the balance sweep task.
func NewBalanceScanTask(payload BalanceScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceScan, data), nil
}

// StockScanPayload configures one stock sweep.
type StockScanPayload struct {
	Repair bool `json:"repair"`
}

// NewStockScanTask constructs the stock sweep task.
func NewStockScanTask(payload StockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockScan, data), nil
}
