package access

// alwaysTrue is used by Validate, which only cares whether evaluate returns
// without error; the boolean result is discarded.
func alwaysTrue([]byte) bool { return true }

// Validate reports whether expr conforms to the access expression grammar.
// validate(expr) succeeds exactly when parse(expr) succeeds and exactly
// when can_access(expr) would not raise, for any authorization
// configuration.
func Validate(expr []byte) error {
	_, err := evaluate(expr, alwaysTrue)
	return err
}

// Evaluator bundles one or more authorization sets behind a single
// CanAccess operation. For k >= 1 sets, CanAccess(expr) is true iff expr
// evaluates to true against every set.
type Evaluator struct {
	authorizers []Authorizer
}

// NewEvaluator builds an Evaluator over one or more authorization sets.
// can_access will require the expression to hold against every one of
// them.
func NewEvaluator(sets ...AuthorizationSet) *Evaluator {
	authorizers := make([]Authorizer, len(sets))
	for i, s := range sets {
		authorizers[i] = s.Authorizer()
	}
	return &Evaluator{authorizers: authorizers}
}

// NewEvaluatorFromAuthorizer builds an Evaluator backed by a single
// Authorizer predicate, treated as one authorization set whose membership
// test delegates to the predicate.
func NewEvaluatorFromAuthorizer(a Authorizer) *Evaluator {
	return &Evaluator{authorizers: []Authorizer{a}}
}

// CanAccess validates expr and decides whether it holds against every
// authorization set the Evaluator was built with. The empty expression is
// accessible regardless of authorizations. CanAccess never returns false
// for malformed input; it returns an *InvalidExpressionError instead.
func (e *Evaluator) CanAccess(expr []byte) (bool, error) {
	if len(e.authorizers) == 0 {
		return evaluate(expr, alwaysTrue)
	}
	for _, a := range e.authorizers {
		ok, err := evaluate(expr, a)
		if err != nil {
			return false, err
		}
		if !ok {
			// Still validate against any remaining sets' grammar view is
			// unnecessary: the expression is the same bytes for every set,
			// so a successful parse against one set implies a successful
			// parse against all of them. Short-circuit the conjunction.
			return false, nil
		}
	}
	return true, nil
}
