package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending          = "Pending"
	OrderStatusInProgress       = "InProgress"
	OrderStatusReadyForDelivery = "ReadyForDelivery"
	OrderStatusDelivered        = "Delivered"
)

const (
	PaymentStatusPending   = "Pending"
	PaymentStatusCompleted = "Completed"
	PaymentStatusFailed    = "Failed"
	PaymentStatusRefunded  = "Refunded"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleStaff   = "STAFF"
)

const (
	OrderPriorityRegular = "Regular"
	OrderPriorityUrgent  = "Urgent"
	OrderPriorityExpress = "Express"
)

const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash         = "Cash"
	PaymentMethodCard         = "Card"
	PaymentMethodUPI          = "UPI"
	PaymentMethodBankTransfer = "BankTransfer"
	PaymentMethodCheque       = "Cheque"
)

const (
	MeasurementUnitInches = "inches"
	MeasurementUnitCM     = "cm"
)

// OrderStatuses lists order states in lifecycle order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusReadyForDelivery,
	OrderStatusDelivered,
}

var PaymentMethods = []string{
	PaymentMethodCash,
	PaymentMethodCard,
	PaymentMethodUPI,
	PaymentMethodBankTransfer,
	PaymentMethodCheque,
}

var PaymentStatuses = []string{
	PaymentStatusPending,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// Contains reports whether v is one of values.
func Contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
