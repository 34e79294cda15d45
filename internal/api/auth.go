package api

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

const (
	salt       = "Otus"
	adminLogin = "admin"
	adminSalt  = "42"
)

// adminDigest derives the expected admin token for the hour containing now.
// The token rotates hourly and follows the host's local time.
func adminDigest(now time.Time) string {
	return sha512Hex(now.Format("2006010215") + adminSalt)
}

// userDigest derives the expected token for a regular account/login pair.
func userDigest(account, login string) string {
	return sha512Hex(account + login + salt)
}

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// checkAuth verifies the envelope token against the digest derived from the
// envelope identity.
// checkAuth 校验请求令牌与派生摘要是否一致。
func checkAuth(req *MethodRequest, now time.Time) bool {
	var digest string
	if req.IsAdmin() {
		digest = adminDigest(now)
	} else {
		digest = userDigest(req.Account, req.Login)
	}
	return subtle.ConstantTimeCompare([]byte(digest), []byte(req.Token)) == 1
}
