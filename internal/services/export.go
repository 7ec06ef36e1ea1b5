package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizgen-backend/internal/models"
	"quizgen-backend/internal/repository"
)

var resultsCSVHeader = []string{
	"Participant Name",
	"Email",
	"Score",
	"Total Questions",
	"Percentage",
	"Grade",
	"Status",
	"Time Spent (minutes)",
	"Submitted At",
}

// ResultsReport joins an owner's set attempts with participant details,
// newest attempt first.
func (s *AttemptService) ResultsReport(ctx context.Context, ownerID, setID uuid.UUID) (*models.ResultsReport, error) {
	set, err := ownedSet(ctx, s.sets, ownerID, setID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attempts.ListBySet(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	report := &models.ResultsReport{
		QuestionSetID: set.ID,
		Name:          set.Name,
		Rows:          make([]models.ResultRow, 0, len(attempts)),
	}
	known := map[uuid.UUID]*models.Participant{}
	for _, a := range attempts {
		p, ok := known[a.ParticipantID]
		if !ok {
			p, err = s.participants.GetByID(ctx, a.ParticipantID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("failed to load participant: %w", err)
			}
			known[a.ParticipantID] = p
		}
		row := models.ResultRow{ParticipantName: "Unknown", ParticipantEmail: "Unknown", Attempt: a}
		if p != nil {
			row.ParticipantName = p.Name
			row.ParticipantEmail = p.Email
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// WriteResultsCSV renders report as CSV with a header row.
func WriteResultsCSV(w io.Writer, report *models.ResultsReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultsCSVHeader); err != nil {
		return err
	}
	for _, r := range report.Rows {
		a := r.Attempt
		status := "Failed"
		if a.Passed {
			status = "Passed"
		}
		record := []string{
			csvSafe(r.ParticipantName),
			csvSafe(r.ParticipantEmail),
			strconv.Itoa(a.CorrectCount),
			strconv.Itoa(a.TotalQuestions),
			strconv.Itoa(a.ScorePercent) + "%",
			a.Grade,
			status,
			strconv.Itoa((a.TimeSpentSeconds + 30) / 60),
			a.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ResultsFilename is the download name for a set's export.
func ResultsFilename(setName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, strings.TrimSpace(setName))
	if name == "" {
		name = "question_set"
	}
	return name + "_results.csv"
}

// csvSafe stops spreadsheet apps from evaluating participant-supplied text.
func csvSafe(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
