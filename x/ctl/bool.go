package ctl

import (
	"reflect"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
)

type boolPtrMapper struct{}

func (boolPtrMapper) Decode(ctx *kong.DecodeContext, target reflect.Value) error {
	set := func(val bool) {
		target.Set(reflect.ValueOf(&val))
	}

	// a bare flag with no value means true
	if ctx.Scan.Peek().Type != kong.FlagValueToken {
		set(true)
		return nil
	}

	token := ctx.Scan.Pop()
	switch v := token.Value.(type) {
	case string:
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			set(true)
		case "false", "0", "no":
			set(false)
		default:
			return errors.Errorf("bool value must be true, 1, yes, false, 0 or no but got %q", v)
		}

	case bool:
		set(v)

	default:
		return errors.Errorf("expected bool but got %q (%T)", token.Value, token.Value)
	}
	return nil
}

func (boolPtrMapper) IsBool() bool { return true }

// BoolPtrMapper is an option to register a mapper to *bool type flag
var BoolPtrMapper = kong.TypeMapper(reflect.TypeOf((*bool)(nil)), boolPtrMapper{})
