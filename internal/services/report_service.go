package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/db"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// ReportInput carries the client-supplied fields for a new report.
type ReportInput struct {
	TargetType  models.ReportTargetType
	TargetCode  utils.Code
	Reason      models.ReportReason
	Description string
}

// IReportService defines the interface for content report operations.
type IReportService interface {
	CreateReport(ctx context.Context, reporterCode utils.Code, input ReportInput) (*models.Report, error)
	ReportsByReporter(ctx context.Context, reporterCode utils.Code) ([]models.Report, error)
	AssignReport(ctx context.Context, reportCode, moderatorCode utils.Code) error
	ResolveReport(ctx context.Context, reportCode, moderatorCode utils.Code, upheld bool, resolution string) error
	CloseReport(ctx context.Context, reportCode, moderatorCode utils.Code) error
}

const reportsCollection = "reports"

// reportService implements IReportService.
type reportService struct {
	db         *mongo.Database
	articleSvc IArticleService
	commentSvc ICommentService
	userSvc    IUserService
}

// NewReportService creates a new ReportService.
func NewReportService(database *mongo.Database, articleSvc IArticleService, commentSvc ICommentService, userSvc IUserService) IReportService {
	return &reportService{db: database, articleSvc: articleSvc, commentSvc: commentSvc, userSvc: userSvc}
}

// CreateReport files a report against an article, a comment, or a user.
func (s *reportService) CreateReport(ctx context.Context, reporterCode utils.Code, input ReportInput) (*models.Report, error) {
	if !models.ValidReportTarget(input.TargetType) {
		return nil, fmt.Errorf("%w: unknown report target %q", ErrValidation, input.TargetType)
	}
	if !models.ValidReportReason(input.Reason) {
		return nil, fmt.Errorf("%w: unknown report reason %q", ErrValidation, input.Reason)
	}
	input.Description = strings.TrimSpace(input.Description)
	if input.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if len(input.Description) > models.ReportDescriptionMaxLen {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrValidation, models.ReportDescriptionMaxLen)
	}

	report := &models.Report{
		ReporterCode: reporterCode,
		TargetType:   input.TargetType,
		Reason:       input.Reason,
		Description:  input.Description,
		State:        models.ReportPending,
		Active:       true,
	}

	// Resolve the target and refuse reports against the reporter's own content.
	switch input.TargetType {
	case models.ReportTargetArticle:
		article, err := s.articleSvc.FindArticleByCode(ctx, input.TargetCode)
		if err != nil {
			return nil, err
		}
		if article.OwnerCode == reporterCode {
			return nil, ErrSelfReport
		}
		report.ArticleCode = &input.TargetCode
	case models.ReportTargetComment:
		var comment models.Comment
		err := s.db.Collection(commentsCollection).FindOne(ctx, bson.M{"_id": input.TargetCode, "active": true}).Decode(&comment)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("error checking comment %s: %w", input.TargetCode, err)
		}
		if comment.SenderCode == reporterCode {
			return nil, ErrSelfReport
		}
		report.CommentCode = &input.TargetCode
	case models.ReportTargetUser:
		if input.TargetCode == reporterCode {
			return nil, ErrSelfReport
		}
		if _, err := s.userSvc.FindByCode(ctx, input.TargetCode); err != nil {
			return nil, err
		}
		report.UserCode = &input.TargetCode
	}

	now := time.Now().UTC()
	report.CreatedAt = now

	operation := func() error {
		code, codeErr := db.NextCode(ctx, s.db, db.SeqReports)
		if codeErr != nil {
			return codeErr
		}
		report.Code = code
		_, insertErr := s.db.Collection(reportsCollection).InsertOne(ctx, report)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	return report, nil
}

// ReportsByReporter lists the user's own reports, newest first.
func (s *reportService) ReportsByReporter(ctx context.Context, reporterCode utils.Code) ([]models.Report, error) {
	filter := bson.M{"reporter_code": reporterCode, "active": true}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(reportsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing reports for user %s: %w", reporterCode, err)
	}
	defer cursor.Close(ctx)

	reports := []models.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("error decoding reports: %w", err)
	}
	return reports, nil
}

// AssignReport moves a pending report into review under the moderator.
func (s *reportService) AssignReport(ctx context.Context, reportCode, moderatorCode utils.Code) error {
	filter := bson.M{
		"_id":    reportCode,
		"state":  models.ReportPending,
		"active": true,
	}
	update := bson.M{"$set": bson.M{
		"state":          models.ReportInReview,
		"moderator_code": moderatorCode,
	}}
	return s.applyTransition(ctx, reportCode, filter, update)
}

// ResolveReport finishes a review. Upholding a report against an article
// also removes the article.
func (s *reportService) ResolveReport(ctx context.Context, reportCode, moderatorCode utils.Code, upheld bool, resolution string) error {
	state := models.ReportRejected
	if upheld {
		state = models.ReportResolved
	}
	now := time.Now().UTC()
	filter := bson.M{
		"_id":            reportCode,
		"state":          models.ReportInReview,
		"moderator_code": moderatorCode,
		"active":         true,
	}
	update := bson.M{"$set": bson.M{
		"state":       state,
		"resolution":  strings.TrimSpace(resolution),
		"resolved_at": now,
	}}
	if err := s.applyTransition(ctx, reportCode, filter, update); err != nil {
		return err
	}

	if upheld {
		var report models.Report
		if err := s.db.Collection(reportsCollection).FindOne(ctx, bson.M{"_id": reportCode}).Decode(&report); err != nil {
			return fmt.Errorf("error reloading report %s: %w", reportCode, err)
		}
		if report.TargetType == models.ReportTargetArticle && report.ArticleCode != nil {
			if err := s.articleSvc.RemoveArticle(ctx, *report.ArticleCode, moderatorCode, true); err != nil && !errors.Is(err, ErrInvalidState) && !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("failed to remove reported article %s: %w", *report.ArticleCode, err)
			}
		}
	}
	return nil
}

// CloseReport archives a resolved or rejected report.
func (s *reportService) CloseReport(ctx context.Context, reportCode, moderatorCode utils.Code) error {
	filter := bson.M{
		"_id":            reportCode,
		"state":          bson.M{"$in": []models.ReportState{models.ReportResolved, models.ReportRejected}},
		"moderator_code": moderatorCode,
		"active":         true,
	}
	update := bson.M{"$set": bson.M{"state": models.ReportClosed}}
	return s.applyTransition(ctx, reportCode, filter, update)
}

func (s *reportService) applyTransition(ctx context.Context, reportCode utils.Code, filter, update bson.M) error {
	result, err := s.db.Collection(reportsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update report %s: %w", reportCode, err)
	}
	if result.MatchedCount == 0 {
		var report models.Report
		findErr := s.db.Collection(reportsCollection).FindOne(ctx, bson.M{"_id": reportCode}).Decode(&report)
		if errors.Is(findErr, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		if findErr != nil {
			return fmt.Errorf("error checking report %s: %w", reportCode, findErr)
		}
		if !report.Active {
			return ErrNotFound
		}
		return fmt.Errorf("%w: report %s is %s", ErrInvalidState, reportCode, report.State)
	}
	return nil
}
