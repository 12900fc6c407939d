package events

// Topic constants for notices raised by billing terminals.
const (
	TopicSaleCompleted      = "sale.completed"
	TopicSaleFailed         = "sale.failed"
	TopicInvoicePrinted     = "invoice.printed"
	TopicInvoicePrintFailed = "invoice.print_failed"
	TopicVoucherApplied     = "voucher.applied"
	TopicVoucherRejected    = "voucher.rejected"
	TopicCartRejected       = "cart.rejected"
	TopicSearchFailed       = "search.failed"
	TopicBillReset          = "bill.reset"
)

// DefaultTopics returns every topic a terminal may raise.
func DefaultTopics() []string {
	return []string{
		TopicSaleCompleted,
		TopicSaleFailed,
		TopicInvoicePrinted,
		TopicInvoicePrintFailed,
		TopicVoucherApplied,
		TopicVoucherRejected,
		TopicCartRejected,
		TopicSearchFailed,
		TopicBillReset,
	}
}
