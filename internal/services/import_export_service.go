package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
	"github.com/scholaris/school-service/internal/validator"
)

// Column layout of the student roster workbook, import and export alike.
var studentSheetHeader = []string{
	"username", "email", "password", "first_name", "last_name",
	"phone", "roll_number", "student_class", "date_of_birth", "admission_date",
}

const studentSheetName = "Students"

// importExportService moves rosters in and out as XLSX and result tables out
// as CSV. Imports go row by row: a bad row is reported and skipped, the rest
// still land.
type importExportService struct {
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.BusinessValidator
	studentService StudentService
	resultService  ResultService
}

func NewImportExportService(repo repositories.Repository, logger *slog.Logger, validator *validator.BusinessValidator, studentService StudentService, resultService ResultService) ImportExportService {
	return &importExportService{
		repo:           repo,
		logger:         logger,
		validator:      validator,
		studentService: studentService,
		resultService:  resultService,
	}
}

// ===== STUDENT ROSTER IMPORT =====

func (s *importExportService) ImportStudentsXLSX(ctx context.Context, r io.Reader, actorID uint) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, validator.ValidationErrors{{
			Field:   "file",
			Message: "workbook has no rows",
			Rule:    "business_logic",
		}}
	}

	if err := checkRosterHeader(rows[0]); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		req, err := rosterRowToRequest(row)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{Row: rowNum, Message: err.Error()})
			continue
		}

		if _, err := s.studentService.Create(ctx, req, actorID); err != nil {
			if IsPermissionError(err) {
				// Not a data problem; stop instead of reporting it per row.
				return nil, err
			}
			result.Failed++
			result.Errors = append(result.Errors, ImportError{Row: rowNum, Message: err.Error()})
			continue
		}
		result.Imported++
	}

	s.logger.Info("Student roster imported",
		"imported", result.Imported,
		"failed", result.Failed,
		"actor_id", actorID)

	return result, nil
}

func checkRosterHeader(header []string) error {
	if len(header) < len(studentSheetHeader) {
		return validator.ValidationErrors{{
			Field:   "file",
			Message: fmt.Sprintf("expected %d columns, got %d", len(studentSheetHeader), len(header)),
			Rule:    "business_logic",
		}}
	}
	for i, want := range studentSheetHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return validator.ValidationErrors{{
				Field:   "file",
				Message: fmt.Sprintf("column %d must be %q", i+1, want),
				Value:   header[i],
				Rule:    "business_logic",
			}}
		}
	}
	return nil
}

func rosterRowToRequest(row []string) (*CreateStudentRequest, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	req := &CreateStudentRequest{
		Username:      cell(0),
		Email:         cell(1),
		Password:      cell(2),
		FirstName:     cell(3),
		Phone:         cell(5),
		RollNumber:    cell(6),
		StudentClass:  cell(7),
		DateOfBirth:   cell(8),
		AdmissionDate: cell(9),
		Status:        models.StatusActive,
	}
	if last := cell(4); last != "" {
		req.LastName = &last
	}
	if req.Username == "" {
		return nil, fmt.Errorf("username is empty")
	}
	return req, nil
}

// ===== STUDENT ROSTER EXPORT =====

func (s *importExportService) ExportStudentsXLSX(ctx context.Context, filters repositories.StudentFilters, actorID uint) ([]byte, error) {
	listing, err := s.studentService.List(ctx, filters, actorID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), studentSheetName)

	// Exports never carry credentials.
	header := []string{
		"roll_number", "student_class", "first_name", "last_name",
		"username", "email", "phone", "status", "date_of_birth", "admission_date",
	}
	for col, title := range header {
		cellName, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(studentSheetName, cellName, title); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, student := range listing.Students {
		lastName := ""
		if student.User.LastName != nil {
			lastName = *student.User.LastName
		}
		values := []interface{}{
			student.RollNumber,
			student.StudentClass,
			student.User.FirstName,
			lastName,
			student.User.Username,
			student.User.Email,
			student.Phone,
			string(student.Status),
			formatDate(student.DateOfBirth),
			formatDate(student.AdmissionDate),
		}
		for col, value := range values {
			cellName, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(studentSheetName, cellName, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	s.logger.Info("Student roster exported",
		"students", len(listing.Students),
		"actor_id", actorID)

	return buf.Bytes(), nil
}

func formatDate(d datatypes.Date) string {
	return time.Time(d).Format("2006-01-02")
}

// ===== RESULT EXPORT =====

// ExportResultsCSV writes the calling teacher's result rows as CSV, in the
// same deterministic order the result listing uses.
func (s *importExportService) ExportResultsCSV(ctx context.Context, actorID uint) ([]byte, error) {
	results, err := s.resultService.ByTeacher(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{
		"exam_id", "exam_title", "roll_number", "student_name",
		"student_class", "score", "total_questions", "submitted_at",
	}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, row := range results {
		record := []string{
			strconv.FormatUint(uint64(row.ExamID), 10),
			row.ExamTitle,
			row.RollNumber,
			row.StudentName,
			row.StudentClass,
			strconv.Itoa(row.Score),
			strconv.Itoa(row.TotalQuestions),
			row.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	s.logger.Info("Results exported", "rows", len(results), "actor_id", actorID)
	return buf.Bytes(), nil
}
