package adapter

// Optional is a string value that may be absent.
type Optional struct {
	Value   string
	Present bool
}

// Some returns a present value.
func Some(v string) Optional { return Optional{Value: v, Present: true} }

// None returns an absent value.
func None() Optional { return Optional{} }

// FirstPresent returns the first present option, or None.
func FirstPresent(opts ...Optional) Optional {
	for _, o := range opts {
		if o.Present {
			return o
		}
	}
	return None()
}

// OrElse returns the value when present, fallback otherwise.
func (o Optional) OrElse(fallback string) string {
	if o.Present {
		return o.Value
	}
	return fallback
}
