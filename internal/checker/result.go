package checker

// Status is the terminal classification of a single check.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
)

// Result is the outcome of a single service check.
//
// DurationMs is zero for results produced by the gate (SKIP or an
// unreachable FAIL) because no check body ran.
type Result struct {
	Service    string `json:"service" yaml:"service"`
	Client     string `json:"client" yaml:"client"`
	Status     Status `json:"status" yaml:"status"`
	Detail     string `json:"detail" yaml:"detail"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
}

func skipResult(service, client, reason string) *Result {
	return &Result{
		Service: service,
		Client:  client,
		Status:  StatusSkip,
		Detail:  reason,
	}
}

func failResult(service, client, reason string) *Result {
	return &Result{
		Service: service,
		Client:  client,
		Status:  StatusFail,
		Detail:  reason,
	}
}
