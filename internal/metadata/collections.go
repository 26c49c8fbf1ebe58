package metadata

import (
	"context"
	"fmt"

	"github.com/conduit-lang/boardstore/internal/board"
	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"go.mongodb.org/mongo-driver/bson"
)

// Settings maps configuration keys to values
type Settings map[string]interface{}

// Messages maps a language to its message keys
type Messages map[string]map[string]string

func parse(collection string, raw []bson.M) (interface{}, error) {
	switch collection {
	case Structure:
		records := make([]map[string]interface{}, len(raw))
		for i, r := range raw {
			records[i] = r
		}
		structures, err := schema.ParseStructures(records)
		if err != nil {
			return nil, err
		}
		return schema.BuildRegistry(structures)
	case Board:
		return board.ParseAll(raw)
	case Configuration:
		out := make(Settings, len(raw))
		for _, r := range raw {
			if key, ok := r["key"].(string); ok && key != "" {
				out[key] = r["value"]
			}
		}
		return out, nil
	case I18n:
		out := make(Messages)
		for _, r := range raw {
			lang, _ := r["lang"].(string)
			key, _ := r["key"].(string)
			if lang == "" || key == "" {
				continue
			}
			if out[lang] == nil {
				out[lang] = make(map[string]string)
			}
			out[lang][key] = fmt.Sprint(r["value"])
		}
		return out, nil
	default:
		return raw, nil
	}
}

// Schemas returns the resolved schema registry
func (l *Loader) Schemas(ctx context.Context) (*schema.Registry, error) {
	v, err := l.get(ctx, Structure)
	if err != nil {
		return nil, err
	}
	return v.(*schema.Registry), nil
}

// Structure returns one structure record together with its resolved
// definition
func (l *Loader) Structure(ctx context.Context, name string) (*schema.Structure, schema.Definition, error) {
	reg, err := l.Schemas(ctx)
	if err != nil {
		return nil, nil, err
	}
	s, ok := reg.Get(name)
	if !ok {
		return nil, nil, errs.Config(errs.CodeUnknownSchema, "unknown schema %q", name)
	}
	def, err := reg.Definition(name)
	if err != nil {
		return nil, nil, err
	}
	return s, def, nil
}

// Boards returns every board by api name
func (l *Loader) Boards(ctx context.Context) (map[string]*board.Board, error) {
	v, err := l.get(ctx, Board)
	if err != nil {
		return nil, err
	}
	return v.(map[string]*board.Board), nil
}

// Board returns the board for an api
func (l *Loader) Board(ctx context.Context, api string) (*board.Board, error) {
	boards, err := l.Boards(ctx)
	if err != nil {
		return nil, err
	}
	b, ok := boards[api]
	if !ok {
		return nil, errs.Config(errs.CodeUnknownBoard, "unknown board %q", api)
	}
	return b, nil
}

// Config returns a configuration value, nil when unset
func (l *Loader) Config(ctx context.Context, key string) (interface{}, error) {
	v, err := l.get(ctx, Configuration)
	if err != nil {
		return nil, err
	}
	return v.(Settings)[key], nil
}

// Message returns the message for key in lang, or key itself when missing
func (l *Loader) Message(ctx context.Context, lang, key string) string {
	v, err := l.get(ctx, I18n)
	if err != nil {
		return key
	}
	if msg, ok := v.(Messages)[lang][key]; ok {
		return msg
	}
	return key
}

// Validators returns the raw validator records
func (l *Loader) Validators(ctx context.Context) ([]bson.M, error) {
	return l.records(ctx, Validator)
}

// Routes returns the raw route records
func (l *Loader) Routes(ctx context.Context) ([]bson.M, error) {
	return l.records(ctx, Route)
}

func (l *Loader) records(ctx context.Context, collection string) ([]bson.M, error) {
	v, err := l.get(ctx, collection)
	if err != nil {
		return nil, err
	}
	return v.([]bson.M), nil
}
