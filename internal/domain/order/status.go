package order

// Canonical order states, in lifecycle order. pending_verification (awaiting
// payment proof) and confirmed (payment accepted, awaiting kitchen) are
// distinct states; the UI folds them into one tab via Bucket.
type Status string

const (
	StatusPending             Status = "pending"
	StatusPendingVerification Status = "pending_verification"
	StatusConfirmed           Status = "confirmed"
	StatusPreparing           Status = "preparing"
	StatusReady               Status = "ready"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPendingVerification, StatusConfirmed,
		StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// validNext encodes operator-triggered transitions. Verification
// (pending_verification -> confirmed) goes through VerifyPayment, not a plain
// status change, but is listed here so the server accepts the transition once
// the payment precondition has been checked. preparing -> completed is a
// deliberate shortcut: some operators complete without marking ready.
var validNext = map[Status]map[Status]bool{
	StatusPending:             {StatusPreparing: true},
	StatusPendingVerification: {StatusConfirmed: true},
	StatusConfirmed:           {StatusPreparing: true},
	StatusPreparing:           {StatusPreparing: true, StatusReady: true, StatusCompleted: true},
	StatusReady:               {StatusCompleted: true},
	StatusCompleted:           {},
	StatusCancelled:           {},
}

func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return !from.IsTerminal()
	}
	return validNext[from][to]
}

// Bucket is the coarse tab grouping used by list screens. Folding
// pending_verification and confirmed into the pending tab is presentation
// only; the store always keeps the canonical states apart.
type Bucket string

const (
	BucketPending   Bucket = "pending"
	BucketPreparing Bucket = "preparing"
	BucketReady     Bucket = "ready"
	BucketHistory   Bucket = "history"
)

func BucketFor(s Status) Bucket {
	switch s {
	case StatusPending, StatusPendingVerification, StatusConfirmed:
		return BucketPending
	case StatusPreparing:
		return BucketPreparing
	case StatusReady:
		return BucketReady
	default:
		return BucketHistory
	}
}
