package problem

import (
	"github.com/boristopalov/coi/pkg/protocol"
)

// abstract marks a member that implementations must provide as a method.
func abstract() {}

// Runtime protocols. Spaces and the spec are only annotated, so protocols
// extending these satisfy them without implementing the members.
var (
	ProblemProtocol = protocol.MustProtocol("Problem", nil, protocol.Members{
		"Metadata":       DefaultMetadata(),
		"RenderMode":     "",
		"Close":          abstract,
		"Render":         abstract,
		"GetWrapperAttr": abstract,
		"Unwrapped": protocol.NewProperty(func(self any) any {
			if p, ok := self.(Problem); ok {
				return p.Unwrapped()
			}
			return self
		}),
	}, protocol.WithAnnotations("Spec"))

	SingleOptimizableProtocol = protocol.MustProtocol("SingleOptimizable",
		[]*protocol.Protocol{ProblemProtocol},
		optimizableAttrs(protocol.Members{
			"GetInitialParams":       abstract,
			"ComputeSingleObjective": abstract,
		}),
		protocol.WithAnnotations("OptimizationSpace"))

	FunctionOptimizableProtocol = protocol.MustProtocol("FunctionOptimizable",
		[]*protocol.Protocol{ProblemProtocol},
		optimizableAttrs(protocol.Members{
			"GetOptimizationSpace":     abstract,
			"GetInitialParamsAt":       abstract,
			"ComputeFunctionObjective": abstract,
			"OverrideSkeletonPoints":   abstract,
		}))

	EnvProtocol = protocol.MustProtocol("Env",
		[]*protocol.Protocol{ProblemProtocol},
		protocol.Members{
			"Reset": abstract,
			"Step":  abstract,
		},
		protocol.WithAnnotations("ActionSpace", "ObservationSpace"))

	OptEnvProtocol = protocol.MustProtocol("OptEnv",
		[]*protocol.Protocol{EnvProtocol, SingleOptimizableProtocol}, nil)
)

// optimizableAttrs adds the data members shared by optimizable problems.
func optimizableAttrs(m protocol.Members) protocol.Members {
	m["ObjectiveRange"] = [2]float64{}
	m["ParamNames"] = []string(nil)
	m["Constraints"] = []Constraint(nil)
	return m
}

// IsProblem reports whether obj structurally implements Problem.
func IsProblem(obj any) bool { return ProblemProtocol.Implements(obj) }

// IsSingleOptimizable reports whether obj structurally implements
// SingleOptimizable.
func IsSingleOptimizable(obj any) bool { return SingleOptimizableProtocol.Implements(obj) }

// IsFunctionOptimizable reports whether obj structurally implements
// FunctionOptimizable.
func IsFunctionOptimizable(obj any) bool { return FunctionOptimizableProtocol.Implements(obj) }

// IsEnv reports whether obj structurally implements Env.
func IsEnv(obj any) bool { return EnvProtocol.Implements(obj) }

// IsOptEnv reports whether obj implements both Env and SingleOptimizable.
func IsOptEnv(obj any) bool { return OptEnvProtocol.Implements(obj) }
