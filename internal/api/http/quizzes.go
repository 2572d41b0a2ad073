package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lioon17/lms-sub000/internal/quiz"
)

// GET /quizzes/{quizID}
// Definition plus questions and options, answer keys stripped.
func GetQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, err := strconv.ParseInt(chi.URLParam(r, "quizID"), 10, 64)
		if err != nil {
			http.Error(w, "bad quiz id", http.StatusBadRequest)
			return
		}
		detail, err := svc.QuizPreview(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, detail)
	}
}

// GET /quizzes?q=...&limit=50&offset=0
func ListQuizzesHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListQuizzes(r.Context(), quiz.ListOpts{
			Q:      strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, list)
	}
}
