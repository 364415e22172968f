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

package codec

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	// Arguments arrive as loosely-typed maps and slices, which gob
	// can only carry inside an interface if they are registered
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(map[string]string{})
	gob.Register([]string{})
}

// CodecFunc is a function that returns a new Codec
// bound to the given io.ReadWriter
type CodecFunc func(io.ReadWriter) Codec

// Codec is able to encode and decode messages to/from
// the given io.ReadWriter
type Codec interface {
	Encode(val any) error
	Decode(val any) error
}

// Default is the default CodecFunc
var Default = Msgpack

// JSON is a CodecFunc that creates a JSON Codec
func JSON(rw io.ReadWriter) Codec {
	type jsonCodec struct {
		*json.Encoder
		*json.Decoder
	}
	return jsonCodec{
		Encoder: json.NewEncoder(rw),
		Decoder: json.NewDecoder(rw),
	}
}

// Msgpack is a CodecFunc that creates a Msgpack Codec
func Msgpack(rw io.ReadWriter) Codec {
	type msgpackCodec struct {
		*msgpack.Encoder
		*msgpack.Decoder
	}
	return msgpackCodec{
		Encoder: msgpack.NewEncoder(rw),
		Decoder: msgpack.NewDecoder(rw),
	}
}

// Gob is a CodecFunc that creates a Gob Codec
func Gob(rw io.ReadWriter) Codec {
	type gobCodec struct {
		*gob.Encoder
		*gob.Decoder
	}
	return gobCodec{
		Encoder: gob.NewEncoder(rw),
		Decoder: gob.NewDecoder(rw),
	}
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	// Maps inside an any must come out keyed by string,
	// the same shape the other codecs produce
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// CBOR is a CodecFunc that creates a canonical CBOR Codec
func CBOR(rw io.ReadWriter) Codec {
	type cborCodec struct {
		*cbor.Encoder
		*cbor.Decoder
	}
	return cborCodec{
		Encoder: cborEnc.NewEncoder(rw),
		Decoder: cborDec.NewDecoder(rw),
	}
}

// Names lists the codec names accepted by ByName
var Names = []string{"msgpack", "json", "gob", "cbor"}

// ByName returns the CodecFunc with the given name
func ByName(name string) (CodecFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "msgpack":
		return Msgpack, nil
	case "json":
		return JSON, nil
	case "gob":
		return Gob, nil
	case "cbor":
		return CBOR, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
