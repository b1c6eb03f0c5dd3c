package alert

// Dispatcher fans out events to matching webhook destinations.
type Dispatcher struct {
	configs []Config
}

// NewDispatcher returns nil when no destinations are configured, which
// callers treat as alerts disabled.
func NewDispatcher(configs []Config) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Dispatch sends the event to every destination whose event list matches.
// Delivery is fire-and-forget; failures are the webhook's problem.
func (d *Dispatcher) Dispatch(event Event) {
	if d == nil {
		return
	}
	for _, cfg := range d.configs {
		if matches(cfg, event) {
			go Send(cfg, event)
		}
	}
}

func matches(cfg Config, event Event) bool {
	if len(cfg.Events) == 0 {
		return true
	}
	for _, want := range cfg.Events {
		if want == event.Decision || want == event.Kind {
			return true
		}
	}
	return false
}
