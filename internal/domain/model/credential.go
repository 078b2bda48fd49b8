package model

import "time"

// Credential is the bearer credential presented to the transcription service
// and validated against the identity provider. SubjectID identifies the owner
// for rate limiting; BearerToken is opaque to this system. The stored
// credential is replaced wholesale on refresh and deleted on sign-out.
type Credential struct {
	SubjectID   string
	BearerToken string
	ObtainedAt  time.Time
}
