package query

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/conduit-lang/boardstore/internal/board"
	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParse_Query(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected board.Params
	}{
		{
			name:     "empty",
			url:      "/api/person.list",
			expected: board.Params{},
		},
		{
			name: "condition json",
			url:  "/api/person.list?condition=" + url.QueryEscape(`{"minAge":25}`),
			expected: board.Params{
				Condition: bson.M{"minAge": int32(25)},
			},
		},
		{
			name: "filter alias with bracket keys",
			url:  "/api/person.list?filter=" + url.QueryEscape(`{"a":"x"}`) + "&filter[b]=y",
			expected: board.Params{
				Condition: bson.M{"a": "x", "b": "y"},
			},
		},
		{
			name: "bracket keys only",
			url:  "/api/person.list?condition[minAge]=25",
			expected: board.Params{
				Condition: bson.M{"minAge": "25"},
			},
		},
		{
			name: "lists trim and drop empty items",
			url:  "/api/person.list?sort=age,%20name,,&order=desc&field=name,age",
			expected: board.Params{
				Sort:   []string{"age", "name"},
				Order:  []string{"desc"},
				Select: []string{"name", "age"},
			},
		},
		{
			name: "select wins over field",
			url:  "/api/person.list?select=name&field=age",
			expected: board.Params{
				Select: []string{"name"},
			},
		},
		{
			name: "id free and paging",
			url:  "/api/person.list?id=abc&skip=10&limit=5&free=" + url.QueryEscape(`{"name":"Ann"}`),
			expected: board.Params{
				ID:    "abc",
				Free:  bson.M{"name": "Ann"},
				Skip:  10,
				Limit: 5,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(httptest.NewRequest(http.MethodGet, tt.url, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestParse_ExtendedJSON(t *testing.T) {
	id := primitive.NewObjectID()
	cond := `{"_id":{"$oid":"` + id.Hex() + `"}}`

	p, err := Parse(httptest.NewRequest(http.MethodGet, "/?condition="+url.QueryEscape(cond), nil))
	require.NoError(t, err)
	assert.Equal(t, id, p.Condition["_id"])
}

func TestParse_Errors(t *testing.T) {
	urls := []string{
		"/?condition=nope",
		"/?free=" + url.QueryEscape(`{"a":`),
		"/?skip=-1",
		"/?limit=ten",
	}
	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			_, err := Parse(httptest.NewRequest(http.MethodGet, u, nil))
			require.Error(t, err)
			assert.Equal(t, errs.CodeInvalidParams, errs.CodeOf(err))
			assert.True(t, errs.IsConfig(err))
		})
	}
}

func TestParse_Body(t *testing.T) {
	body := `{
		"condition": {"minAge": 30},
		"sort": ["age"],
		"order": "desc",
		"field": ["name"],
		"id": "abc",
		"skip": 2,
		"limit": 3
	}`
	r := httptest.NewRequest(http.MethodPost, "/?limit=100&sort=name", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	p, err := Parse(r)
	require.NoError(t, err)
	assert.Equal(t, board.Params{
		Condition: bson.M{"minAge": int32(30)},
		ID:        "abc",
		Sort:      []string{"age"},
		Order:     []string{"desc"},
		Select:    []string{"name"},
		Skip:      2,
		Limit:     3,
	}, p)
}

func TestParse_BodyIgnoredWithoutJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/?limit=7", strings.NewReader(`{"limit": 3}`))
	r.Header.Set("Content-Type", "text/plain")

	p, err := Parse(r)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.Limit)
}

func TestParse_BadBody(t *testing.T) {
	for _, body := range []string{`{"skip": -1}`, `{"limit": -4}`, `not json`} {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		_, err := Parse(r)
		assert.Equal(t, errs.CodeInvalidParams, errs.CodeOf(err), body)
	}
}
