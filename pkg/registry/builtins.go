package registry

import (
	"fmt"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/mitchellh/mapstructure"
)

// decodeParams maps a normalized params map onto a typed struct.
// Weak typing lets YAML-sourced values ("3", 3, 3.0) land in the field
// the factory wants; duration strings decode via the time hook.
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("decoding params: %w", err)
	}
	return nil
}

func mustRegister(r *Registry, schema NodeTypeSchema, factory Factory) {
	if err := r.Register(schema, factory); err != nil {
		panic(err)
	}
}

// Builtins returns a registry populated with the full builtin palette:
// the three composites, the decorator set and the behavior leaves.
func Builtins() *Registry {
	r := New()
	registerComposites(r)
	registerDecorators(r)
	registerBehaviors(r)
	return r
}

func registerComposites(r *Registry) {
	memoryParam := ParamSpec{Name: "memory", Type: ParamBool, Default: false}

	mustRegister(r, NodeTypeSchema{
		Name:        node.TypeSequence,
		Category:    CategoryComposite,
		Arity:       ArityOneOrMore,
		Params:      []ParamSpec{memoryParam},
		Description: "Ticks children in order; fails on the first failure, succeeds when all succeed.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Memory bool `mapstructure:"memory"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewSequence(spec.ID, spec.Name, p.Memory, spec.Children), nil
	})

	mustRegister(r, NodeTypeSchema{
		Name:        node.TypeSelector,
		Category:    CategoryComposite,
		Arity:       ArityOneOrMore,
		Params:      []ParamSpec{memoryParam},
		Description: "Ticks children in order; succeeds on the first success, fails when all fail.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Memory bool `mapstructure:"memory"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewSelector(spec.ID, spec.Name, p.Memory, spec.Children), nil
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeParallel,
		Category: CategoryComposite,
		Arity:    ArityOneOrMore,
		Params: []ParamSpec{
			{Name: "policy", Type: ParamString, Default: string(node.PolicySuccessOnAll)},
			{Name: "threshold", Type: ParamInt, Min: minOf(1)},
		},
		Description: "Ticks every child each pass and aggregates by policy.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Policy    string `mapstructure:"policy"`
			Threshold int    `mapstructure:"threshold"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewParallel(spec.ID, spec.Name, node.ParallelPolicy(p.Policy), p.Threshold, spec.Children)
	})
}

func registerDecorators(r *Registry) {
	for _, pair := range node.ConverterPairs() {
		from, to := pair[0], pair[1]
		mustRegister(r, NodeTypeSchema{
			Name:        node.ConverterTypeName(from, to),
			Category:    CategoryDecorator,
			Arity:       ArityOne,
			Description: fmt.Sprintf("Remaps child %s to %s; other statuses pass through.", from, to),
		}, func(spec Spec) (node.Node, error) {
			return node.NewStatusConverter(spec.ID, spec.Name, from, to, spec.Children[0])
		})
	}

	mustRegister(r, NodeTypeSchema{
		Name:        node.TypeInverter,
		Category:    CategoryDecorator,
		Arity:       ArityOne,
		Description: "Swaps child SUCCESS and FAILURE; RUNNING passes through.",
	}, func(spec Spec) (node.Node, error) {
		return node.NewInverter(spec.ID, spec.Name, spec.Children[0]), nil
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeRetry,
		Category: CategoryDecorator,
		Arity:    ArityOne,
		Params: []ParamSpec{
			{Name: "num_attempts", Type: ParamInt, Required: true, Min: minOf(1)},
		},
		Description: "Re-ticks a failing child up to num_attempts times before failing.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			NumAttempts int `mapstructure:"num_attempts"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewRetry(spec.ID, spec.Name, p.NumAttempts, spec.Children[0])
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeRepeat,
		Category: CategoryDecorator,
		Arity:    ArityOne,
		Params: []ParamSpec{
			{Name: "num_success", Type: ParamInt, Required: true, Min: minOf(1)},
		},
		Description: "Succeeds after the child succeeds num_success times in a row.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			NumSuccess int `mapstructure:"num_success"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewRepeat(spec.ID, spec.Name, p.NumSuccess, spec.Children[0])
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeTimeout,
		Category: CategoryDecorator,
		Arity:    ArityOne,
		Params: []ParamSpec{
			{Name: "duration", Type: ParamDuration, Required: true},
		},
		Description: "Fails the child once it has been RUNNING past the duration.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Duration time.Duration `mapstructure:"duration"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewTimeout(spec.ID, spec.Name, p.Duration, spec.Children[0])
	})

	mustRegister(r, NodeTypeSchema{
		Name:        node.TypeOneShot,
		Category:    CategoryDecorator,
		Arity:       ArityOne,
		Description: "Latches the child's first terminal status and stops ticking it.",
	}, func(spec Spec) (node.Node, error) {
		return node.NewOneShot(spec.ID, spec.Name, spec.Children[0]), nil
	})

	mustRegister(r, NodeTypeSchema{
		Name:        node.TypeCount,
		Category:    CategoryDecorator,
		Arity:       ArityOne,
		Description: "Passes the child status through while tallying results per status.",
	}, func(spec Spec) (node.Node, error) {
		return node.NewCount(spec.ID, spec.Name, spec.Children[0]), nil
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeEternalGuard,
		Category: CategoryDecorator,
		Arity:    ArityOne,
		Params: []ParamSpec{
			{Name: "condition", Type: ParamString, Required: true},
		},
		Description: "Re-evaluates a boolean expression every tick; fails without ticking the child when it is false.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Condition string `mapstructure:"condition"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewEternalGuard(spec.ID, spec.Name, p.Condition, spec.Children[0])
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeWaitCondition,
		Category: CategoryDecorator,
		Arity:    ArityOne,
		Params: []ParamSpec{
			{Name: "condition", Type: ParamString, Required: true},
		},
		Description: "Returns RUNNING until the expression holds, then ticks the child.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Condition string `mapstructure:"condition"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewWaitCondition(spec.ID, spec.Name, p.Condition, spec.Children[0])
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeStatusToBlackboard,
		Category: CategoryDecorator,
		Arity:    ArityOne,
		Params: []ParamSpec{
			{Name: "key", Type: ParamString, Required: true},
		},
		Description: "Mirrors the child's status into a blackboard key.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Key string `mapstructure:"key"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewStatusToBlackboard(spec.ID, spec.Name, p.Key, spec.Children[0]), nil
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeBlackboardToStatus,
		Category: CategoryDecorator,
		Arity:    ArityOne,
		Params: []ParamSpec{
			{Name: "key", Type: ParamString, Required: true},
		},
		Description: "Overrides the child's status from a blackboard key when it holds a valid status.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Key string `mapstructure:"key"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewBlackboardToStatus(spec.ID, spec.Name, p.Key, spec.Children[0]), nil
	})
}

func registerBehaviors(r *Registry) {
	keyParam := ParamSpec{Name: "key", Type: ParamString, Required: true}

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeConstant,
		Category: CategoryBehavior,
		Arity:    ArityNone,
		Params: []ParamSpec{
			{Name: "status", Type: ParamStatus, Required: true},
		},
		Description: "Always returns the configured status.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Status string `mapstructure:"status"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewConstant(spec.ID, spec.Name, domain.Status(p.Status))
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeTickCounter,
		Category: CategoryBehavior,
		Arity:    ArityNone,
		Params: []ParamSpec{
			{Name: "ticks", Type: ParamInt, Required: true, Min: minOf(1)},
		},
		Description: "RUNNING until ticked the configured number of times, then SUCCESS.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Ticks int `mapstructure:"ticks"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewTickCounter(spec.ID, spec.Name, p.Ticks)
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeSuccessEveryN,
		Category: CategoryBehavior,
		Arity:    ArityNone,
		Params: []ParamSpec{
			{Name: "period", Type: ParamInt, Required: true, Min: minOf(1)},
		},
		Description: "Succeeds on every Nth tick, fails otherwise.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Period int `mapstructure:"period"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewSuccessEveryN(spec.ID, spec.Name, p.Period)
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeProbabilistic,
		Category: CategoryBehavior,
		Arity:    ArityNone,
		Params: []ParamSpec{
			{Name: "weights", Type: ParamWeights, Required: true},
			{Name: "seed", Type: ParamInt, Default: 0},
		},
		Description: "Samples a status from a weighted distribution; deterministic per seed.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Weights map[string]float64 `mapstructure:"weights"`
			Seed    int64              `mapstructure:"seed"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewProbabilistic(spec.ID, spec.Name, p.Weights, p.Seed)
	})

	mustRegister(r, NodeTypeSchema{
		Name:        node.TypeBlackboardExists,
		Category:    CategoryBehavior,
		Arity:       ArityNone,
		Params:      []ParamSpec{keyParam},
		Description: "Succeeds when the blackboard key is present.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Key string `mapstructure:"key"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewBlackboardExists(spec.ID, spec.Name, p.Key), nil
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeBlackboardSet,
		Category: CategoryBehavior,
		Arity:    ArityNone,
		Params: []ParamSpec{
			keyParam,
			{Name: "value", Type: ParamAny, Required: true},
		},
		Description: "Writes a literal value to the blackboard and succeeds.",
	}, func(spec Spec) (node.Node, error) {
		key, _ := spec.Params["key"].(string)
		if key == "" {
			return nil, fmt.Errorf("parameter key must be a non-empty string")
		}
		return node.NewBlackboardSet(spec.ID, spec.Name, key, spec.Params["value"]), nil
	})

	mustRegister(r, NodeTypeSchema{
		Name:        node.TypeBlackboardUnset,
		Category:    CategoryBehavior,
		Arity:       ArityNone,
		Params:      []ParamSpec{keyParam},
		Description: "Removes a blackboard key and succeeds.",
	}, func(spec Spec) (node.Node, error) {
		var p struct {
			Key string `mapstructure:"key"`
		}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return node.NewBlackboardUnset(spec.ID, spec.Name, p.Key), nil
	})

	mustRegister(r, NodeTypeSchema{
		Name:     node.TypeWaitForBlackboard,
		Category: CategoryBehavior,
		Arity:    ArityNone,
		Params: []ParamSpec{
			keyParam,
			{Name: "op", Type: ParamString, Default: node.OpEqual},
			{Name: "value", Type: ParamAny, Required: true},
		},
		Description: "RUNNING until the key compares true against the literal, then SUCCESS.",
	}, func(spec Spec) (node.Node, error) {
		key, _ := spec.Params["key"].(string)
		op, _ := spec.Params["op"].(string)
		return node.NewWaitForBlackboard(spec.ID, spec.Name, key, op, spec.Params["value"])
	})
}
