package errors

// Kind groups codes by how a caller is expected to react.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindAuthorization Kind = "authorization"
	KindRateLimit     Kind = "rate_limit"
	KindTransient     Kind = "transient"
)

var kindByCode = map[Code]Kind{
	CodeValidation:    KindValidation,
	CodeStateConflict: KindValidation,
	CodeNotFound:      KindValidation,
	CodeConflict:      KindConflict,
	CodeDuplicate:     KindConflict,
	CodeIdempotency:   KindConflict,
	CodeInFlight:      KindTransient,
	CodeUnauthorized:  KindAuthorization,
	CodeForbidden:     KindAuthorization,
	CodeRateLimit:     KindRateLimit,
	CodeInternal:      KindTransient,
	CodeDependency:    KindTransient,
}

// Classify returns the kind for err. Untyped errors (network failures, timeouts) are transient.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	typed := As(err)
	if typed == nil {
		return KindTransient
	}
	if kind, ok := kindByCode[typed.Code()]; ok {
		return kind
	}
	return KindTransient
}
