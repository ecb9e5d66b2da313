package authz

// Ruleset is an immutable computed permission set. It is replaced wholesale
// whenever the identity or its linked students change; it is never mutated
// in place and never persisted across sessions.
type Ruleset struct {
	rules []Rule
}

// NewRuleset wraps a rule list produced by BuildRules.
func NewRuleset(rules []Rule) *Ruleset {
	return &Ruleset{rules: rules}
}

// Empty returns a ruleset with zero grants, the ability of an anonymous
// identity.
func Empty() *Ruleset {
	return &Ruleset{}
}

// Rules returns a copy of the underlying rule list.
func (rs *Ruleset) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Can reports whether the ruleset permits the action on the resource.
//
// A rule matches when its action is the queried action or manage, and its
// subject is the resource's subject type or the wildcard. Any matching
// inverted rule denies the query outright. Otherwise the query succeeds if
// at least one matching grant has all of its conditions satisfied by the
// resource; with no matching rule at all the answer is false.
func (rs *Ruleset) Can(action Action, res Resource) bool {
	if rs == nil || res == nil {
		return false
	}
	subject := res.SubjectType()
	granted := false
	for _, rule := range rs.rules {
		if !actionMatches(rule.Action, action) || !subjectMatches(rule.Subject, subject) {
			continue
		}
		if rule.Inverted {
			if len(rule.Conditions) == 0 || rule.Conditions.SatisfiedBy(res) {
				return false
			}
			continue
		}
		if granted {
			continue
		}
		if len(rule.Conditions) == 0 || rule.Conditions.SatisfiedBy(res) {
			// Keep scanning: a later deny must still be able to veto.
			granted = true
		}
	}
	return granted
}

// Cannot is the strict negation of Can.
func (rs *Ruleset) Cannot(action Action, res Resource) bool {
	return !rs.Can(action, res)
}

// CanWith merges ad hoc scoping fields into the resource before evaluating.
// It lets a caller supply data the resource itself does not carry, such as a
// route parameter standing in for studentId.
func (rs *Ruleset) CanWith(action Action, res Resource, extra map[string]string) bool {
	if len(extra) == 0 {
		return rs.Can(action, res)
	}
	return rs.Can(action, overlay{base: res, extra: extra})
}

// overlay shadows a resource's attributes with ad hoc values.
type overlay struct {
	base  Resource
	extra map[string]string
}

func (o overlay) SubjectType() Subject { return o.base.SubjectType() }

func (o overlay) Attribute(name string) (string, bool) {
	if v, ok := o.extra[name]; ok {
		return v, true
	}
	return o.base.Attribute(name)
}

// Filter returns the order-preserving subsequence of items the ruleset
// permits the action on.
func Filter[T Resource](rs *Ruleset, action Action, items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if rs.Can(action, item) {
			out = append(out, item)
		}
	}
	return out
}

func actionMatches(ruleAction, queried Action) bool {
	return ruleAction == queried || ruleAction == ActionManage
}

func subjectMatches(ruleSubject, queried Subject) bool {
	return ruleSubject == queried || ruleSubject == SubjectAll
}
