package policy

import (
	"testing"

	"innovate-ink/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCanPerform(t *testing.T) {
	writer := &model.Principal{ID: "w1", Role: model.RoleWriter}
	otherWriter := &model.Principal{ID: "w2", Role: model.RoleWriter}
	reader := &model.Principal{ID: "w1", Role: model.RoleReader} // same id as the author, still a reader
	owned := &model.Article{AuthorID: "w1"}

	tests := []struct {
		name      string
		principal *model.Principal
		action    Action
		article   *model.Article
		want      Decision
	}{
		{"anonymous lists", nil, ActionList, nil, allow()},
		{"anonymous reads", nil, ActionRead, owned, allow()},
		{"anonymous views", nil, ActionIncrementView, owned, allow()},
		{"anonymous likes", nil, ActionIncrementLike, owned, allow()},
		{"reader likes", reader, ActionIncrementLike, owned, allow()},

		{"writer creates", writer, ActionCreate, nil, allow()},
		{"reader cannot create", reader, ActionCreate, nil, deny(ReasonForbidden)},
		{"anonymous cannot create", nil, ActionCreate, nil, deny(ReasonUnauthenticated)},

		{"owner updates", writer, ActionUpdate, owned, allow()},
		{"owner deletes", writer, ActionDelete, owned, allow()},
		{"other writer updates", otherWriter, ActionUpdate, owned, deny(ReasonNotFoundOrForbidden)},
		{"other writer deletes", otherWriter, ActionDelete, owned, deny(ReasonNotFoundOrForbidden)},
		{"reader updates", reader, ActionUpdate, owned, deny(ReasonNotFoundOrForbidden)},
		{"reader deletes", reader, ActionDelete, owned, deny(ReasonNotFoundOrForbidden)},
		{"missing article", writer, ActionUpdate, nil, deny(ReasonNotFoundOrForbidden)},
		{"anonymous updates", nil, ActionUpdate, owned, deny(ReasonUnauthenticated)},
		{"anonymous deletes", nil, ActionDelete, nil, deny(ReasonUnauthenticated)},

		{"unknown action", writer, Action("publish"), owned, deny(ReasonUnknownAction)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPerform(tt.principal, tt.action, tt.article))
		})
	}
}

func TestCanPerform_NonOwnerCannotTellExistence(t *testing.T) {
	stranger := &model.Principal{ID: "w2", Role: model.RoleWriter}

	existing := CanPerform(stranger, ActionUpdate, &model.Article{AuthorID: "w1"})
	missing := CanPerform(stranger, ActionUpdate, nil)

	assert.Equal(t, existing, missing)
}
