package rebound

// Integrator advances the simulation state by one internal step. Implementations own
// their scratch state: Reset drops it (called on selector or topology changes), Clone
// deep-copies it (needed by the exact-finish stash so a resumed propagation replays the
// same trajectory).
type Integrator interface {
	Step(s *Simulation)
	Reset()
	Clone() Integrator
	String() string
}

var integratorRegistry = map[string]func() Integrator{
	"leapfrog": func() Integrator { return &leapfrog{} },
	"whfast":   func() Integrator { return &whfast{} },
	"ias15":    func() Integrator { return &ias15{} },
	"rk4":      func() Integrator { return &rk4{} },
	"dopri":    func() Integrator { return &dormandPrince{} },
}

func newIntegrator(name string, t float64) (Integrator, error) {
	mk, found := integratorRegistry[name]
	if !found {
		return nil, newErr(KindUnknownIntegrator, t, "no integrator named %q", name)
	}
	return mk(), nil
}
