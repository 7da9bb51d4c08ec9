package schema

import (
	"fmt"

	"github.com/anziyang2000/hq-code-sub003/internal/models"
)

// Canonical shapes. Each one is the generic JSON form of a typed model with
// one element per list, so they stay in step with the Go types.
var (
	TicketInfo            = mustObject(models.NewTicketInfo())
	TicketData            = mustObject(models.NewTicketData())
	Metadata              = mustObject(models.Metadata{})
	Token                 = mustObject(models.Token{Slot: models.NewTicketInfo(), Provenance: []models.StockBatch{}})
	OrderInfo             = mustObject(models.NewOrderInfo())
	DistributionOrderInfo = mustObject(models.NewDistributionOrderInfo())
	DistributeRefundInfo  = mustObject(models.NewDistributeRefundInfo())
	OrderRefundInfoToC    = mustObject(models.NewOrderRefundInfoToC())
	ActiveInfo            = mustObject(models.ActiveInfo{})
	CreditInfo            = mustObject(models.CreditInfo{})
	TransferInfo          = mustObject(models.TransferInfo{})
	PaymentFlowInfo       = mustObject(models.PaymentFlowInfo{})
	TicketCheck           = mustObject(models.TicketCheck{})
	VerifyStatus          = mustObject(models.VerifyStatus{})
	TicketStatusUpdate    = mustObject(models.TicketStatusUpdate{})
	PriceStrategy         = mustObject(models.NewPriceStrategy())
	StockTimes            = mustObject(models.StockTimes{})
)

// TemplateOf returns the generic JSON object form of a typed value.
func TemplateOf(v any) (map[string]any, error) {
	g, err := ToValue(v)
	if err != nil {
		return nil, err
	}
	obj, ok := g.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("template of %T is %s, not an object", v, kindOf(g))
	}
	return obj, nil
}

func mustObject(v any) map[string]any {
	obj, err := TemplateOf(v)
	if err != nil {
		panic(err)
	}
	return obj
}
