// Package valid provides the field validators used by the setup pages and
// configuration sections.
//
// A Rule is a predicate with a description. A Chain is an ordered list of
// rules combined with "or": the first rule that accepts a value wins, and
// the value is rejected only when every rule rejects it.
//
//	port := valid.Or(valid.Empty(), valid.Port())
//	if err := port.Validate("vdsm.port", "99999"); err != nil {
//	    // err is a *valid.ValidationError naming vdsm.port
//	}
package valid
