package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrInvalidInput        = fmt.Errorf("invalid input")
	ErrUnknownSender       = fmt.Errorf("sender is not a registered participant")
	ErrParticipantExists   = fmt.Errorf("participant already exists")
	ErrParticipantNotFound = fmt.Errorf("participant not found")
	ErrMessageNotFound     = fmt.Errorf("message not found")
	ErrNotMessageOwner     = fmt.Errorf("requester is not the message sender")
	ErrStoreClosed         = fmt.Errorf("store is closed")
)
