package shell

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Rashteg/h-opc-rashteg/internal/coerce"
)

// Written describes a completed write.
type Written struct {
	Tag   string
	Kind  coerce.Kind
	Value any
}

// SplitHint separates "TAG:hint" into tag and hint. A colon at the first
// or last position is part of the tag.
func SplitHint(raw string) (tag, hint string) {
	i := strings.LastIndex(raw, ":")
	if i <= 0 || i == len(raw)-1 {
		return raw, ""
	}
	return raw[:i], raw[i+1:]
}

// Write converts rawValue and writes it to the tag named by rawTag.
//
// A type hint on the tag wins over everything else. Otherwise the kind
// comes from the server's data type, then from the runtime type of the
// current value, and finally defaults to Float. A decimal-looking value
// against a 16/32/64-bit integer tag is written as Float, or Double when
// it does not fit a Float.
func (s *Session) Write(ctx context.Context, rawTag, rawValue string) (Written, error) {
	base, hint := SplitHint(rawTag)
	tag := s.Resolve(ctx, base)

	if hint != "" {
		kind, err := coerce.ParseHint(hint)
		if err != nil {
			return Written{}, err
		}
		s.log.Debug("write kind from hint", zap.String("tag", tag), zap.Stringer("kind", kind))
		return s.writeAs(ctx, tag, rawValue, kind)
	}

	typeName, err := s.client.DataType(ctx, tag)
	if err != nil {
		s.log.Debug("data type unavailable", zap.String("tag", tag), zap.Error(err))
	}
	kind := coerce.Classify(typeName)
	if kind == coerce.KindUnknown {
		kind, err = s.runtimeKind(ctx, tag)
		if err != nil {
			return Written{}, err
		}
	}
	s.log.Debug("write kind inferred",
		zap.String("tag", tag), zap.String("data_type", typeName), zap.Stringer("kind", kind))

	if kind.IsInteger() && coerce.LooksDecimal(rawValue) {
		if f, err := s.parser.ParseFloat32(rawValue); err == nil {
			return s.put(ctx, tag, coerce.KindFloat, f)
		}
		d, err := s.parser.ParseFloat64(rawValue)
		if err != nil {
			return Written{}, err
		}
		return s.put(ctx, tag, coerce.KindDouble, d)
	}
	return s.writeAs(ctx, tag, rawValue, kind)
}

// runtimeKind classifies the tag's current value, falling back to Float.
func (s *Session) runtimeKind(ctx context.Context, tag string) (coerce.Kind, error) {
	ev, err := s.client.Read(ctx, tag)
	if err != nil {
		return coerce.KindUnknown, fmt.Errorf("failed to read current value of %s: %w", tag, err)
	}
	kind := coerce.ClassifyValue(ev.Value)
	if kind == coerce.KindUnknown {
		s.log.Debug("current value not classifiable, using Float",
			zap.String("tag", tag), zap.String("value_type", fmt.Sprintf("%T", ev.Value)))
		return coerce.KindFloat, nil
	}
	return kind, nil
}

func (s *Session) writeAs(ctx context.Context, tag, rawValue string, kind coerce.Kind) (Written, error) {
	v, err := s.parser.Parse(rawValue, kind)
	if err != nil {
		return Written{}, err
	}
	return s.put(ctx, tag, kind, v)
}

func (s *Session) put(ctx context.Context, tag string, kind coerce.Kind, v any) (Written, error) {
	if err := s.client.Write(ctx, tag, v); err != nil {
		return Written{}, fmt.Errorf("failed to write %s: %w", tag, err)
	}
	return Written{Tag: tag, Kind: kind, Value: v}, nil
}
