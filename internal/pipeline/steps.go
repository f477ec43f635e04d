package pipeline

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/convert"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/explode"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/join"
	"github.com/ajitpratap0/nebulaframe/pkg/reshape"
)

// stepEnv is what an operation sees besides its input table.
type stepEnv struct {
	tables   map[string]*frame.Table
	defaults defaults
	registry *convert.Registry
	log      *zap.Logger
}

// defaults fill step arguments the plan leaves out.
type defaults struct {
	joinType  string
	dropEmpty bool
}

type operation func(t *frame.Table, s Step, env *stepEnv) (*frame.Table, error)

var operations = map[string]operation{
	OpExplode: runExplode,
	OpImplode: runImplode,
	OpJoin:    runJoin,
	OpSplit:   runSplit,
	OpMerge:   runMerge,
	OpConvert: runConvert,
	OpParse:   runParse,
	OpSelect:  runSelect,
}

func (s Step) dropEmpty(def bool) bool {
	if s.DropEmpty != nil {
		return *s.DropEmpty
	}
	return def
}

func runExplode(t *frame.Table, s Step, env *stepEnv) (*frame.Table, error) {
	return explode.Explode(t, frame.Cols(s.Columns...), explode.Options{
		DropEmpty: s.dropEmpty(env.defaults.dropEmpty),
		Logger:    env.log,
	})
}

func runImplode(t *frame.Table, s Step, env *stepEnv) (*frame.Table, error) {
	return explode.Implode(t, frame.Cols(s.Columns...), explode.ImplodeOptions{
		DropNulls: s.DropNulls,
		Logger:    env.log,
	})
}

func runJoin(t *frame.Table, s Step, env *stepEnv) (*frame.Table, error) {
	right, ok := env.tables[s.Right]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown table %q", s.Right)
	}
	name := s.Type
	if name == "" {
		name = env.defaults.joinType
	}
	typ, err := join.ParseType(name)
	if err != nil {
		return nil, err
	}

	keys := join.On(s.On...)
	if len(s.RightOn) > 0 {
		keys = make([]join.KeyPair, len(s.On))
		for i := range s.On {
			keys[i] = join.Pair(s.On[i], s.RightOn[i])
		}
	}
	return join.JoinWith(t, right, join.Options{Type: typ, Keys: keys, Logger: env.log})
}

func runSplit(t *frame.Table, s Step, env *stepEnv) (*frame.Table, error) {
	sp := reshape.Split(t, frame.Cols(s.Columns...)).WithLogger(env.log)
	if len(s.Delimiters) > 0 {
		sp = sp.By(s.Delimiters...)
	}
	if s.Trim {
		sp = sp.Trim()
	}
	switch s.Mode {
	case SplitInward:
		return sp.Inward()
	case SplitRows:
		return sp.IntoRows(s.dropEmpty(env.defaults.dropEmpty))
	default:
		return sp.Into(s.Into...)
	}
}

func runMerge(t *frame.Table, s Step, env *stepEnv) (*frame.Table, error) {
	m := reshape.Merge(t, frame.Cols(s.Columns...)).WithLogger(env.log)
	if s.Separator != nil {
		m = m.By(*s.Separator)
	}
	if s.DropNulls {
		m = m.NotNull()
	}
	return m.Into(s.Target)
}

func runConvert(t *frame.Table, s Step, env *stepEnv) (*frame.Table, error) {
	to, ok := frame.ParseColumnType(s.To)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown column type %q", s.To)
	}
	paths, err := frame.Cols(s.Columns...).Select(t)
	if err != nil {
		return nil, err
	}
	out := t
	for _, p := range paths {
		if out, err = convert.Convert(out, p, to, env.registry); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func runParse(t *frame.Table, s Step, env *stepEnv) (*frame.Table, error) {
	var sel frame.Selector
	if len(s.Columns) > 0 {
		sel = frame.Cols(s.Columns...)
	}
	return convert.Parse(t, sel, env.registry)
}

func runSelect(t *frame.Table, s Step, _ *stepEnv) (*frame.Table, error) {
	paths := make([]frame.Path, len(s.Columns))
	for i, c := range s.Columns {
		paths[i] = frame.ParsePath(c)
	}
	return t.Select(paths...)
}
