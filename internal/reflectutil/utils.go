/*
 *	devbridge exposes host device capabilities over method channels.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package reflectutil

import (
	"encoding"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Convert attempts to convert the given value to the given type
func Convert(in reflect.Value, toType reflect.Type) (reflect.Value, error) {
	// A missing value becomes the zero value of the desired type
	if !in.IsValid() {
		return reflect.Zero(toType), nil
	}

	// Get input type
	inType := in.Type()

	// If input is already the desired type, return
	if inType == toType {
		return in, nil
	}

	// If the output type is a pointer to the input type
	if reflect.PointerTo(inType) == toType {
		if in.CanAddr() {
			// Return pointer to input
			return in.Addr(), nil
		}

		inPtrVal := reflect.New(inType)
		inPtrVal.Elem().Set(in)
		return inPtrVal, nil
	}

	// If input is a pointer pointing to the output type
	if inType.Kind() == reflect.Ptr && inType.Elem() == toType {
		// Return value being pointed at by input
		return reflect.Indirect(in), nil
	}

	// If input can be converted to desired type, convert and return.
	// Integer to string conversions are excluded, as Go would
	// produce a rune instead of the number's text.
	if in.CanConvert(toType) && !(isNumber(inType.Kind()) && toType.Kind() == reflect.String) {
		return in.Convert(toType), nil
	}

	// Create new value of desired type
	to := reflect.New(toType).Elem()

	// If type is a pointer
	if to.Kind() == reflect.Ptr {
		// Initialize value
		to.Set(reflect.New(to.Type().Elem()))
	}

	switch val := in.Interface().(type) {
	case string:
		// If desired type satisfies text unmarshaler
		if u, ok := to.Interface().(encoding.TextUnmarshaler); ok {
			// Use text unmarshaler to get value
			err := u.UnmarshalText([]byte(val))
			if err != nil {
				return reflect.Value{}, err
			}

			// Return unmarshaled value
			return reflect.ValueOf(any(u)), nil
		}
	case []byte:
		// If desired type satisfies binary unmarshaler
		if u, ok := to.Interface().(encoding.BinaryUnmarshaler); ok {
			// Use binary unmarshaler to get value
			err := u.UnmarshalBinary(val)
			if err != nil {
				return reflect.Value{}, err
			}

			// Return unmarshaled value
			return reflect.ValueOf(any(u)), nil
		}
	}

	// If input is a map, use mapstructure to decode value
	if in.Kind() == reflect.Map {
		if err := mapstructure.Decode(in.Interface(), to.Addr().Interface()); err != nil {
			return reflect.Value{}, err
		}
		return to, nil
	}

	// If input is a slice of any, and output is an array or slice
	if inType == reflect.TypeOf([]any{}) &&
		(to.Kind() == reflect.Slice || to.Kind() == reflect.Array) {
		// Use ConvertSlice to convert value
		return reflect.ValueOf(ConvertSlice(
			in.Interface().([]any),
			toType,
		)), nil
	}

	return to, fmt.Errorf("cannot convert %s to %s", inType, toType)
}

// ConvertSlice converts []any to an array or slice, as provided
// in the "to" argument.
func ConvertSlice(in []any, to reflect.Type) any {
	// Create new value for output
	out := reflect.New(to).Elem()

	// If output value is a slice
	if out.Kind() == reflect.Slice {
		// Get type of slice elements
		outType := out.Type().Elem()

		// For every value provided
		for i := 0; i < len(in); i++ {
			// Create new output type
			outVal := reflect.New(outType).Elem()

			newVal, err := Convert(reflect.ValueOf(in[i]), outType)
			if err == nil {
				outVal.Set(newVal)
			}

			// Append output value to slice
			out = reflect.Append(out, outVal)
		}
	} else if out.Kind() == reflect.Array && out.Len() == len(in) {
		//If output type is array and lengths match

		// For every input value
		for i := 0; i < len(in); i++ {
			newVal, err := Convert(reflect.ValueOf(in[i]), out.Index(i).Type())
			if err == nil {
				out.Index(i).Set(newVal)
			}
		}
	}

	// Return created value
	return out.Interface()
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
