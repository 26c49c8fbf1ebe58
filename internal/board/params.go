package board

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Params is the request side input of a board operation
type Params struct {
	// Condition holds request values addressed by filter parameter name
	Condition bson.M
	// Free is a caller built query that bypasses the board filters
	Free bson.M
	// ID restricts the query to one record
	ID interface{}
	// Sort and Order feed dynamic sort specifications in index order
	Sort  []string
	Order []string
	// Select overrides the board projection
	Select []string
	Skip   int64
	Limit  int64
}

// Session identifies the handler a query is built for
type Session struct {
	UserID   string
	CorpID   string
	Now      time.Time
	Location *time.Location
}

func (s Session) now() time.Time {
	if s.Now.IsZero() {
		return time.Now()
	}
	return s.Now
}

func (s Session) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Reserved default tokens
const (
	TokenUser    = "$uid"
	TokenDate    = "$sysdate"
	TokenTime    = "$systime"
	TokenCompany = "$corp"
)

// resolveToken substitutes a reserved token. Only exact tokens match, with
// either sigil.
func (s Session) resolveToken(v interface{}) interface{} {
	str, ok := v.(string)
	if !ok || len(str) < 2 || (str[0] != '$' && str[0] != '@') {
		return v
	}
	switch "$" + str[1:] {
	case TokenUser:
		return s.UserID
	case TokenDate, TokenTime:
		return s.now()
	case TokenCompany:
		return s.CorpID
	default:
		return v
	}
}
