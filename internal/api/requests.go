package api

import (
	"sort"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// MethodRequest is the materialized POST /method envelope.
// MethodRequest 是物化后的 POST /method 请求信封。
type MethodRequest struct {
	Account   string         `mapstructure:"account"`
	Login     string         `mapstructure:"login"`
	Token     string         `mapstructure:"token"`
	Arguments map[string]any `mapstructure:"arguments"`
	Method    string         `mapstructure:"method"`
}

// IsAdmin reports whether the request runs under the admin login.
func (r *MethodRequest) IsAdmin() bool {
	return r.Login == adminLogin
}

// OnlineScoreArgs carries the materialized online_score arguments. Phone
// stays dynamic because the wire format allows both strings and numbers.
type OnlineScoreArgs struct {
	FirstName string  `mapstructure:"first_name"`
	LastName  string  `mapstructure:"last_name"`
	Email     string  `mapstructure:"email"`
	Phone     any     `mapstructure:"phone"`
	Birthday  string  `mapstructure:"birthday"`
	Gender    float64 `mapstructure:"gender"`
}

// PhoneString renders the phone argument in its 11 digit string form.
func (a *OnlineScoreArgs) PhoneString() string {
	switch p := a.Phone.(type) {
	case string:
		return p
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64)
	default:
		return ""
	}
}

// ClientsInterestsArgs carries the materialized clients_interests arguments.
type ClientsInterestsArgs struct {
	ClientIDs []int  `mapstructure:"client_ids"`
	Date      string `mapstructure:"date"`
}

// decodeInto materializes a validated raw JSON object into out and returns
// the keys no declared field consumed. Null values keep the zero value, so
// callers must rely on the field report, not the struct, for presence.
// decodeInto 将已校验的原始 JSON 对象物化到 out 中，并返回未被消费的键。
func decodeInto(raw map[string]any, out any) ([]string, error) {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   out,
		Metadata: &md,
		TagName:  "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}

// filledNames lists the non-empty fields in a stable order, for logging.
func (r fieldReport) filledNames() []string {
	names := make([]string, 0, len(r.Filled))
	for name := range r.Filled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
