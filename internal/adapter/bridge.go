package adapter

import (
	"context"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/ids"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
)

// Receipt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "user-cancelled"
)

// RetryErrorCode marks a receipt recorded for a retried delivery.
const RetryErrorCode = "E_RETRY"

func bridgeChain(c *client.Client, kind string) *chain.Guarded {
	return c.User().Child("hermes").Child("bridge").Child(kind)
}

func bridgeItem(c *client.Client, kind, id, name string) (*chain.Guarded, error) {
	v, err := mesh.RequireID(id, name)
	if err != nil {
		return nil, err
	}
	return bridgeChain(c, kind).Child(v), nil
}

func repStatsChain(c *client.Client, repID string) (*chain.Guarded, error) {
	id, err := mesh.RequireID(repID, "repId")
	if err != nil {
		return nil, err
	}
	return c.Mesh().Child("bridge").Child("stats").Child(id), nil
}

// SaveAction seals a civic action into ~<pub>/hermes/bridge/actions/<id>/.
func SaveAction(ctx context.Context, c *client.Client, action any) (*schema.CivicAction, error) {
	return writeSealed(ctx, c, schema.KindCivicAction, mesh.BridgePolicy, action, func(v *schema.CivicAction) (chain.Chain, error) {
		return bridgeItem(c, "actions", v.ID, "actionId")
	})
}

// LoadAction returns a saved action, or nil.
func LoadAction(ctx context.Context, c *client.Client, actionID string) *schema.CivicAction {
	node, err := bridgeItem(c, "actions", actionID, "actionId")
	if err != nil {
		return nil
	}
	return readSealed[schema.CivicAction](ctx, c, node, schema.KindCivicAction, mesh.BridgePolicy)
}

// SaveReceipt seals a delivery receipt into
// ~<pub>/hermes/bridge/receipts/<id>/.
func SaveReceipt(ctx context.Context, c *client.Client, receipt any) (*schema.DeliveryReceipt, error) {
	return writeSealed(ctx, c, schema.KindDeliveryReceipt, mesh.BridgePolicy, receipt, func(v *schema.DeliveryReceipt) (chain.Chain, error) {
		return bridgeItem(c, "receipts", v.ID, "receiptId")
	})
}

// LoadReceipt returns a saved receipt, or nil.
func LoadReceipt(ctx context.Context, c *client.Client, receiptID string) *schema.DeliveryReceipt {
	node, err := bridgeItem(c, "receipts", receiptID, "receiptId")
	if err != nil {
		return nil
	}
	return readSealed[schema.DeliveryReceipt](ctx, c, node, schema.KindDeliveryReceipt, mesh.BridgePolicy)
}

// ListReceipts returns the receipts of actionID in attempt order.
func ListReceipts(ctx context.Context, c *client.Client, actionID string) []schema.DeliveryReceipt {
	id, err := mesh.RequireID(actionID, "actionId")
	if err != nil {
		return []schema.DeliveryReceipt{}
	}
	all := listSealed[schema.DeliveryReceipt](ctx, c, bridgeChain(c, "receipts"), schema.KindDeliveryReceipt, mesh.BridgePolicy)
	out := all[:0]
	for _, r := range all {
		if r.ActionID == id {
			out = append(out, r)
		}
	}
	sortStable(out, func(a, b schema.DeliveryReceipt) bool {
		if a.RetryCount != b.RetryCount {
			return a.RetryCount < b.RetryCount
		}
		return a.ID < b.ID
	})
	return out
}

// ReceiptOptions carries the optional error details of a receipt.
type ReceiptOptions struct {
	ErrorMessage string
	ErrorCode    string
}

// NewReceipt records the next delivery attempt of action. The receipt id
// is derived from the action id and the attempt number, and the receipt
// links to the previous attempt's receipt when there is one.
func NewReceipt(ctx context.Context, c *client.Client, action *schema.CivicAction, outcome string, opts ReceiptOptions) (*schema.DeliveryReceipt, error) {
	if action == nil {
		return nil, &mesh.RequiredError{Field: "action"}
	}
	actionID, err := mesh.RequireID(action.ID, "actionId")
	if err != nil {
		return nil, err
	}
	existing := ListReceipts(ctx, c, actionID)
	attempt := len(existing)

	receipt := schema.DeliveryReceipt{
		ID:               ids.ReceiptID(actionID, attempt),
		SchemaVersion:    schema.DeliveryReceiptVersion,
		ActionID:         actionID,
		RepresentativeID: action.RepresentativeID,
		Status:           outcome,
		Timestamp:        c.Now().UnixMilli(),
		Intent:           action.Intent,
		UserAttested:     true,
		RetryCount:       attempt,
		ErrorMessage:     opts.ErrorMessage,
		ErrorCode:        opts.ErrorCode,
	}
	if attempt > 0 {
		receipt.PreviousReceiptID = existing[attempt-1].ID
	}
	return SaveReceipt(ctx, c, receipt)
}

// SaveReport seals a report pointer into ~<pub>/hermes/bridge/reports/<reportId>/.
func SaveReport(ctx context.Context, c *client.Client, report any) (*schema.BridgeReport, error) {
	return writeSealed(ctx, c, schema.KindBridgeReport, mesh.BridgePolicy, report, func(v *schema.BridgeReport) (chain.Chain, error) {
		return bridgeItem(c, "reports", v.ReportID, "reportId")
	})
}

// LoadReport returns a saved report pointer, or nil.
func LoadReport(ctx context.Context, c *client.Client, reportID string) *schema.BridgeReport {
	node, err := bridgeItem(c, "reports", reportID, "reportId")
	if err != nil {
		return nil
	}
	return readSealed[schema.BridgeReport](ctx, c, node, schema.KindBridgeReport, mesh.BridgePolicy)
}

// IncrementRepStats bumps the public action count of a representative.
// The read-modify-write is not atomic across devices; concurrent
// increments may be lost.
func IncrementRepStats(ctx context.Context, c *client.Client, repID string) (*schema.RepStats, error) {
	node, err := repStatsChain(c, repID)
	if err != nil {
		return nil, err
	}
	count := 0
	if m, ok := c.Env().ReadRaw(ctx, node).(map[string]any); ok {
		if n, ok := m["count"].(float64); ok && n >= 0 {
			count = int(n)
		}
	}
	stats := schema.RepStats{Count: count + 1, LastActivity: c.Now().UnixMilli()}
	return write(ctx, c, schema.KindRepStats, mesh.BridgePolicy, stats, func(*schema.RepStats) (chain.Chain, error) {
		return node, nil
	})
}

// ReadRepStats returns a representative's stats, or nil.
func ReadRepStats(ctx context.Context, c *client.Client, repID string) *schema.RepStats {
	node, err := repStatsChain(c, repID)
	if err != nil {
		return nil
	}
	return read[schema.RepStats](ctx, c, node, schema.KindRepStats, mesh.BridgePolicy)
}
