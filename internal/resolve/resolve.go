//
// Copyright (c) 2011-2019 Canonical Ltd
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package resolve implements implicit scalar tag resolution for the
// YAML 1.2 core schema, with a legacy mode for the wider 1.1 forms.
package resolve

import (
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Mode selects the implicit typing rules.
type Mode int

const (
	// Core12 is the YAML 1.2 core schema.
	Core12 Mode = iota
	// Legacy11 adds the 1.1 forms: the yes/no/on/off bool spellings.
	Legacy11
)

type resolveMapItem struct {
	value interface{}
	tag   string
}

var (
	resolveTable = make([]byte, 256)
	resolveMap   = make(map[string]resolveMapItem)
	resolveMap11 = make(map[string]resolveMapItem)
)

func init() {
	t := resolveTable
	t[int('+')] = 'S' // Sign
	t[int('-')] = 'S'
	for _, c := range "0123456789" {
		t[int(c)] = 'D' // Digit
	}
	for _, c := range "yYnNtTfFoO~" {
		t[int(c)] = 'M' // In map
	}
	t[int('.')] = '.' // Float (potentially in map)

	resolveMapList := []struct {
		v   interface{}
		tag string
		l   []string
	}{
		{v: true, tag: BoolTag, l: []string{"true", "True", "TRUE"}},
		{v: false, tag: BoolTag, l: []string{"false", "False", "FALSE"}},
		{tag: NullTag, l: []string{"", "~", "null", "Null", "NULL"}},
		{v: math.NaN(), tag: FloatTag, l: []string{".nan", ".NaN", ".NAN"}},
		{v: math.Inf(+1), tag: FloatTag, l: []string{".inf", ".Inf", ".INF"}},
		{v: math.Inf(+1), tag: FloatTag, l: []string{"+.inf", "+.Inf", "+.INF"}},
		{v: math.Inf(-1), tag: FloatTag, l: []string{"-.inf", "-.Inf", "-.INF"}},
		{v: "<<", tag: MergeTag, l: []string{"<<"}},
	}
	for _, item := range resolveMapList {
		for _, s := range item.l {
			resolveMap[s] = resolveMapItem{value: item.v, tag: item.tag}
		}
	}

	// The 1.1 bool zoo.
	resolveMapList11 := []struct {
		v   interface{}
		tag string
		l   []string
	}{
		{v: true, tag: BoolTag, l: []string{"y", "Y", "yes", "Yes", "YES", "on", "On", "ON"}},
		{v: false, tag: BoolTag, l: []string{"n", "N", "no", "No", "NO", "off", "Off", "OFF"}},
	}
	for _, item := range resolveMapList11 {
		for _, s := range item.l {
			resolveMap11[s] = resolveMapItem{value: item.v, tag: item.tag}
		}
	}
}

// Short forms of the core tags.
const (
	NullTag      = "!!null"
	BoolTag      = "!!bool"
	StrTag       = "!!str"
	IntTag       = "!!int"
	FloatTag     = "!!float"
	TimestampTag = "!!timestamp"
	SeqTag       = "!!seq"
	MapTag       = "!!map"
	BinaryTag    = "!!binary"
	MergeTag     = "!!merge"
)

const longTagPrefix = "tag:yaml.org,2002:"

// ShortTag compacts a tag:yaml.org,2002: URI to its !! form.
func ShortTag(tag string) string {
	if strings.HasPrefix(tag, longTagPrefix) {
		return "!!" + tag[len(longTagPrefix):]
	}
	return tag
}

// LongTag expands a !! tag to its URI form.
func LongTag(tag string) string {
	if strings.HasPrefix(tag, "!!") {
		return longTagPrefix + tag[2:]
	}
	return tag
}

func resolvableTag(tag string) bool {
	switch tag {
	case "", StrTag, BoolTag, IntTag, FloatTag, NullTag, TimestampTag:
		return true
	}
	return false
}

var yamlStyleFloat = regexp.MustCompile(`^[-+]?(\.\d+|\d+(\.\d*)?)([eE][-+]?\d+)?$`)

// Resolve maps a scalar's tag and text to the resolved tag and typed
// value. An empty tag resolves through the implicit typing rules of
// the mode; an explicit tag is validated against the text.
func Resolve(mode Mode, tag, in string) (rtag string, out interface{}, errOut error) {
	tag = ShortTag(tag)
	if !resolvableTag(tag) {
		return tag, in, nil
	}

	defer func() {
		switch tag {
		case "", rtag, StrTag, BinaryTag:
			return
		case FloatTag:
			if rtag == IntTag {
				switch v := out.(type) {
				case int64:
					rtag = FloatTag
					out = float64(v)
					return
				case int:
					rtag = FloatTag
					out = float64(v)
					return
				}
			}
		}
		errOut = fmt.Errorf("yaml: cannot decode %s `%s` as a %s", ShortTag(rtag), in, ShortTag(tag))
	}()

	// Any data is accepted as a !!str or !!binary; otherwise the
	// first character hints at what the text may be.
	hint := byte('N')
	if in != "" {
		hint = resolveTable[in[0]]
	}
	if hint != 0 && tag != StrTag && tag != BinaryTag {
		if item, ok := resolveMap[in]; ok {
			return item.tag, item.value, nil
		}
		if mode == Legacy11 {
			if item, ok := resolveMap11[in]; ok {
				return item.tag, item.value, nil
			}
		}

		// Base 60 floats are a bad idea, were dropped in YAML 1.2,
		// and are unsupported here even in legacy mode. They are
		// still quoted on the way out.

		switch hint {
		case 'M':
			// Already checked the maps above.

		case '.':
			floatv, err := strconv.ParseFloat(in, 64)
			if err == nil {
				return FloatTag, floatv, nil
			}

		case 'D', 'S':
			// Int, float or timestamp. Timestamps only apply to
			// untagged or explicitly tagged text.
			if tag == "" || tag == TimestampTag {
				t, ok := parseTimestamp(in)
				if ok {
					return TimestampTag, t, nil
				}
			}

			plain := strings.ReplaceAll(in, "_", "")
			intv, err := strconv.ParseInt(plain, 0, 64)
			if err == nil {
				return IntTag, intv, nil
			}
			uintv, err := strconv.ParseUint(plain, 0, 64)
			if err == nil {
				return IntTag, uintv, nil
			}
			if yamlStyleFloat.MatchString(plain) {
				floatv, err := strconv.ParseFloat(plain, 64)
				if err == nil {
					return FloatTag, floatv, nil
				}
			}
			if strings.HasPrefix(plain, "0b") {
				intv, err := strconv.ParseInt(plain[2:], 2, 64)
				if err == nil {
					return IntTag, intv, nil
				}
				uintv, err := strconv.ParseUint(plain[2:], 2, 64)
				if err == nil {
					return IntTag, uintv, nil
				}
			} else if strings.HasPrefix(plain, "-0b") {
				intv, err := strconv.ParseInt("-"+plain[3:], 2, 64)
				if err == nil {
					return IntTag, intv, nil
				}
			}
			// 1.2 octals are spelled 0o777. The 1.1 spelling 0777
			// also decodes above, via base-0 parsing, and stays
			// supported for compatibility.
			if strings.HasPrefix(plain, "0o") {
				intv, err := strconv.ParseInt(plain[2:], 8, 64)
				if err == nil {
					return IntTag, intv, nil
				}
				uintv, err := strconv.ParseUint(plain[2:], 8, 64)
				if err == nil {
					return IntTag, uintv, nil
				}
			} else if strings.HasPrefix(plain, "-0o") {
				intv, err := strconv.ParseInt("-"+plain[3:], 8, 64)
				if err == nil {
					return IntTag, intv, nil
				}
			}
		default:
			panic("internal error: missing handler for resolver table: " + string(rune(hint)) + " (with " + in + ")")
		}
	}
	return StrTag, in, nil
}

// EncodeBase64 encodes s as base64 broken into lines sized for the
// resulting length.
func EncodeBase64(s string) string {
	const lineLen = 70
	encLen := base64.StdEncoding.EncodedLen(len(s))
	lines := encLen/lineLen + 1
	buf := make([]byte, encLen*2+lines)
	in := buf[0:encLen]
	out := buf[encLen:]
	base64.StdEncoding.Encode(in, []byte(s))
	k := 0
	for i := 0; i < len(in); i += lineLen {
		j := i + lineLen
		if j > len(in) {
			j = len(in)
		}
		k += copy(out[k:], in[i:j])
		if lines > 1 {
			out[k] = '\n'
			k++
		}
	}
	return string(out[:k])
}

// A subset of the timestamp formats defined at
// http://yaml.org/type/timestamp.html.
var allowedTimestampFormats = []string{
	"2006-1-2T15:4:5.999999999Z07:00", // RFC3339Nano with short date fields.
	"2006-1-2t15:4:5.999999999Z07:00", // RFC3339Nano with short date fields and lower-case "t".
	"2006-1-2 15:4:5.999999999",       // space separated with no time zone
	"2006-1-2",                        // date only
	// Notable exception: time.Parse cannot handle: "2001-12-14 21:59:43.10 -5"
	// from the set of examples.
}

// parseTimestamp parses s as a timestamp and reports whether it
// succeeded.
func parseTimestamp(s string) (time.Time, bool) {
	// Quick check: all date formats start with YYYY-.
	i := 0
	for ; i < len(s); i++ {
		if c := s[i]; c < '0' || c > '9' {
			break
		}
	}
	if i != 4 || i == len(s) || s[i] != '-' {
		return time.Time{}, false
	}
	for _, format := range allowedTimestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
