package config

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// RespInfo controls how much of each crawled response gets logged.
type RespInfo string

const (
	RespInfoNone RespInfo = "none" // nothing
	RespInfoUrl  RespInfo = "url"  // url => status
	RespInfoHead RespInfo = "head" // url => status + headers
	RespInfoBody RespInfo = "body" // url => status + headers + body
)

func (r RespInfo) String() string {
	if r == "" {
		return string(RespInfoNone)
	}
	return string(r)
}

// Includes reports whether level r logs at least as much as other.
func (r RespInfo) Includes(other RespInfo) bool {
	return r.rank() >= other.rank()
}

func (r RespInfo) rank() int {
	switch r {
	case RespInfoUrl:
		return 1
	case RespInfoHead:
		return 2
	case RespInfoBody:
		return 3
	default:
		return 0
	}
}

func ParseRespInfo(v string) (RespInfo, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none", "false":
		return RespInfoNone, nil
	case "url", "true":
		return RespInfoUrl, nil
	case "head":
		return RespInfoHead, nil
	case "body":
		return RespInfoBody, nil
	default:
		return RespInfoNone, fmt.Errorf("unknown variant: %s", v)
	}
}

// UnmarshalJSON accepts either a level name or a boolean (true means url).
func (r *RespInfo) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	switch res.Type {
	case gjson.True:
		*r = RespInfoUrl
	case gjson.False, gjson.Null:
		*r = RespInfoNone
	case gjson.String:
		v, err := ParseRespInfo(res.Str)
		if err != nil {
			return err
		}
		*r = v
	default:
		return fmt.Errorf("outRespInfo: expected a string or a boolean, got %s", res.Raw)
	}
	return nil
}

func (r RespInfo) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}
