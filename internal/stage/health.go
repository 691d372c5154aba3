package stage

// Health reports whether a pipeline stage can run and why not when it
// cannot. Degraded stages stay Ready but carry a Detail note.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports a stage that is fully operational.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Degraded reports a stage that can run with reduced capability, such as
// a prober whose optional validators are unavailable.
func Degraded(name, detail string) Health {
	return Health{Name: name, Ready: true, Detail: detail}
}

// Unhealthy reports a stage that must not run until the detail is resolved.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
