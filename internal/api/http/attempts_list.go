package http

import (
	"net/http"
	"strconv"
	"strings"

	auth "github.com/lioon17/lms-sub000/internal/auth/middleware"
	"github.com/lioon17/lms-sub000/internal/quiz"
	"github.com/lioon17/lms-sub000/internal/rbac"
)

// GET /attempts?quiz_id=...&user_id=...&status=open|graded&limit=50&offset=0
// Roles without attempt:view-all are pinned to their own rows.
func ListAttemptsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := auth.SubjectFromContext(r.Context())
		if role == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		quizID, _ := strconv.ParseInt(r.URL.Query().Get("quiz_id"), 10, 64)
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

		if role != "admin" && role != "teacher" {
			userID = sub
		}

		list, err := svc.ListAttempts(r.Context(), quiz.AttemptListOpts{
			QuizID: quizID,
			UserID: userID,
			Status: status,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, list)
	}
}
