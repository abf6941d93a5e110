package strategy

import "fmt"

// constructors is the closed lookup table dispatching strategy
// construction by name, replacing the open dynamic dispatch a
// decorator-based registry would need: the set of strategies is fixed
// and known at compile time, so a map from string to constructor
// function is enough.
var constructors = map[string]func(params) (Strategy, error){
	"marsi": func(p params) (Strategy, error) {
		s := NewMARSI(marsiFromParams(p))
		if err := s.ValidateConfig(); err != nil {
			return nil, err
		}
		return s, nil
	},
	"supertrend": func(p params) (Strategy, error) {
		s := NewSupertrend(supertrendFromParams(p))
		if err := s.ValidateConfig(); err != nil {
			return nil, err
		}
		return s, nil
	},
	"bollinger_mr": func(p params) (Strategy, error) {
		s := NewBollingerMR(bollingerMRFromParams(p))
		if err := s.ValidateConfig(); err != nil {
			return nil, err
		}
		return s, nil
	},
	"keltner_breakout": func(p params) (Strategy, error) {
		s := NewKeltnerBreakout(keltnerFromParams(p))
		if err := s.ValidateConfig(); err != nil {
			return nil, err
		}
		return s, nil
	},
	"ict_smc": func(p params) (Strategy, error) {
		s := NewICTSMC(ictsmcFromParams(p))
		if err := s.ValidateConfig(); err != nil {
			return nil, err
		}
		return s, nil
	},
}

// New constructs a registered strategy by name from a loosely typed
// parameter map, applying that strategy's defaults for any key not
// present in params and validating the result.
func New(name string, paramMap map[string]any) (Strategy, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", errInvalidConfig, name)
	}
	return ctor(params(paramMap))
}

// Names returns the registered strategy names.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	return names
}
