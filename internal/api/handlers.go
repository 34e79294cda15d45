package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/livp123/logsift/internal/utils/logger"
)

// maxBodyBytes bounds the accepted request body size.
const maxBodyBytes = 1 << 20

// errorText maps response codes rendered as error envelopes to their
// default texts. Codes absent from this map render as success envelopes.
var errorText = map[int]string{
	http.StatusBadRequest:          "Bad Request",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not Found",
	http.StatusMethodNotAllowed:    "Method Not Allowed",
	http.StatusUnprocessableEntity: "Invalid Request",
	http.StatusInternalServerError: "Internal Server Error",
}

// writeEnvelope emits the uniform response envelope: error codes wrap the
// payload under "error" (falling back to the default text), success codes
// under "response".
func writeEnvelope(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	var body map[string]any
	if text, isErr := errorText[code]; isErr {
		if payload == nil {
			payload = text
		}
		body = map[string]any{"error": payload, "code": code}
	} else {
		body = map[string]any{"response": payload, "code": code}
	}
	_ = json.NewEncoder(w).Encode(body)
}

// handleMethod serves POST /method: decode the envelope, authenticate and
// dispatch to the named scoring method.
// handleMethod 处理 POST /method：解码信封、认证并分发到指定的评分方法。
func (s *Server) handleMethod(w http.ResponseWriter, r *http.Request) {
	log := logger.Get(r.Context())

	if r.Method != http.MethodPost {
		writeEnvelope(w, http.StatusMethodNotAllowed, nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, nil)
		return
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		writeEnvelope(w, http.StatusBadRequest, nil)
		return
	}

	payload, code := s.dispatch(r.Context(), raw)
	if _, isErr := errorText[code]; isErr {
		log.Infow("⚠️ Method call rejected", "code", code, "reason", payload)
	}
	writeEnvelope(w, code, payload)
}

// dispatch validates the envelope, checks the token and routes to the
// method implementation.
func (s *Server) dispatch(ctx context.Context, raw map[string]any) (any, int) {
	log := logger.Get(ctx)

	rep := methodFields.validate(raw)
	if len(rep.Errors) > 0 {
		return rep.Errors, http.StatusUnprocessableEntity
	}

	var req MethodRequest
	unused, err := decodeInto(raw, &req)
	if err != nil {
		log.Errorw("❌ Envelope decode failed", "error", err)
		return nil, http.StatusInternalServerError
	}
	if len(unused) > 0 {
		log.Debugw("Ignoring unknown envelope keys", "keys", unused)
	}

	if !checkAuth(&req, s.now()) {
		log.Warnw("⚠️ Authentication failed", "login", req.Login)
		return nil, http.StatusForbidden
	}

	switch req.Method {
	case "online_score":
		return s.onlineScore(ctx, &req)
	case "clients_interests":
		return s.clientsInterests(ctx, &req)
	default:
		return fmt.Sprintf("unknown method %q", req.Method), http.StatusNotFound
	}
}

// onlineScore answers the online_score method. The admin login always
// scores 42; other logins score by which arguments are filled.
func (s *Server) onlineScore(ctx context.Context, req *MethodRequest) (any, int) {
	log := logger.Get(ctx)

	rep := onlineScoreFields.validate(req.Arguments)
	// A gender of 0 is a legitimate "unknown" answer: it counts as filled
	// for pair checking even though it is the numeric zero value.
	if g, ok := req.Arguments["gender"].(float64); ok && g == GenderUnknown {
		rep.Filled["gender"] = true
	}
	if !hasValidPair(rep.Filled) {
		rep.Errors["pairs"] = "at least one pair of phone/email, first_name/last_name or gender/birthday must be filled"
	}
	if len(rep.Errors) > 0 {
		return rep.Errors, http.StatusUnprocessableEntity
	}

	var args OnlineScoreArgs
	unused, err := decodeInto(req.Arguments, &args)
	if err != nil {
		log.Errorw("❌ Arguments decode failed", "method", "online_score", "error", err)
		return nil, http.StatusInternalServerError
	}
	if len(unused) > 0 {
		log.Debugw("Ignoring unknown argument keys", "keys", unused)
	}
	log.Infow("📊 online_score", "has", rep.filledNames())

	if req.IsAdmin() {
		return map[string]any{"score": float64(42)}, http.StatusOK
	}
	score := GetScore(args.PhoneString(), args.Email, args.Birthday, int(args.Gender), args.FirstName, args.LastName)
	return map[string]any{"score": score}, http.StatusOK
}

// clientsInterests answers the clients_interests method with two sampled
// interests per requested client id.
func (s *Server) clientsInterests(ctx context.Context, req *MethodRequest) (any, int) {
	log := logger.Get(ctx)

	rep := clientsInterestsFields.validate(req.Arguments)
	if len(rep.Errors) > 0 {
		return rep.Errors, http.StatusUnprocessableEntity
	}

	var args ClientsInterestsArgs
	unused, err := decodeInto(req.Arguments, &args)
	if err != nil {
		log.Errorw("❌ Arguments decode failed", "method", "clients_interests", "error", err)
		return nil, http.StatusInternalServerError
	}
	if len(unused) > 0 {
		log.Debugw("Ignoring unknown argument keys", "keys", unused)
	}
	log.Infow("📊 clients_interests", "nclients", len(args.ClientIDs))

	out := make(map[string][]string, len(args.ClientIDs))
	for _, id := range args.ClientIDs {
		out[strconv.Itoa(id)] = GetInterests()
	}
	return out, http.StatusOK
}
