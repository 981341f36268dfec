// Package policy decides who may do what to an article. Decisions are pure:
// they look only at the principal, the action and the article snapshot.
package policy

import "innovate-ink/internal/model"

type Action string

const (
	ActionList          Action = "list"
	ActionRead          Action = "read"
	ActionIncrementView Action = "increment_view"
	ActionIncrementLike Action = "increment_like"
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
)

// Reason explains a denial.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonUnauthenticated     Reason = "unauthenticated"
	ReasonForbidden           Reason = "forbidden"
	ReasonNotFoundOrForbidden Reason = "not_found_or_forbidden"
	ReasonUnknownAction       Reason = "unknown_action"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason Reason) Decision { return Decision{Reason: reason} }

// CanPerform reports whether p (nil for anonymous) may perform action on
// article. article is only consulted for owner-scoped actions, where a nil
// article means it does not exist.
//
// Owner-scoped denials never reveal whether the article exists: a reader,
// a writer who is not the author and a missing article all get
// ReasonNotFoundOrForbidden.
func CanPerform(p *model.Principal, action Action, article *model.Article) Decision {
	switch action {
	case ActionList, ActionRead, ActionIncrementView, ActionIncrementLike:
		return allow()

	case ActionCreate:
		if p == nil {
			return deny(ReasonUnauthenticated)
		}
		if !p.IsWriter() {
			return deny(ReasonForbidden)
		}
		return allow()

	case ActionUpdate, ActionDelete:
		if p == nil {
			return deny(ReasonUnauthenticated)
		}
		if !p.IsWriter() || article == nil || article.AuthorID != p.ID {
			return deny(ReasonNotFoundOrForbidden)
		}
		return allow()
	}

	return deny(ReasonUnknownAction)
}
