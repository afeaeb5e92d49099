package services

import (
	"context"
	"errors"
	"strings"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const SummaryPageSize = 5

var (
	errInvalidCredentials = apperr.NewAuthorization("Invalid email or password")
	errResetRejected      = apperr.Validationf("answers", "Invalid email or security answers.")
)

// AccountService manages users, credentials and the profile summary.
type AccountService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAccountService(db *gorm.DB, logger *zap.Logger) *AccountService {
	return &AccountService{db: db, logger: logger}
}

func (s *AccountService) Signup(ctx context.Context, input SignupInput) (*entity.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&entity.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return nil, apperr.FromDB(err, "check email", "User")
	}
	if count > 0 {
		return nil, apperr.Validationf("email", "Email %s in use.", input.Email)
	}

	user, err := entity.NewUser(input.Email, input.Password, entity.SecurityAnswers{input.Answer1, input.Answer2, input.Answer3})
	if err != nil {
		return nil, apperr.NewInfrastructure("create user", err)
	}
	user.Name = input.Name
	user.Surname = input.Surname

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperr.FromDB(err, "create user", "User")
	}
	s.logger.Info("User signed up", zap.Uint("user_id", user.ID))
	return user, nil
}

// Authenticate checks an email and password pair.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	var user entity.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, apperr.FromDB(err, "find user", "User")
	}
	if !user.CheckPassword(password) {
		return nil, errInvalidCredentials
	}
	return &user, nil
}

func (s *AccountService) GetUser(ctx context.Context, id uint) (*entity.User, error) {
	var user entity.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, apperr.FromDB(err, "get user", "User")
	}
	return &user, nil
}

// ResetPassword sets a new password when all three security answers match.
// The error does not tell which check failed.
func (s *AccountService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateInput(input); err != nil {
		return err
	}

	var user entity.User
	err := s.db.WithContext(ctx).Where("email = ?", input.Email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errResetRejected
	}
	if err != nil {
		return apperr.FromDB(err, "find user", "User")
	}

	if !user.CheckSecurityAnswers(entity.SecurityAnswers{input.Answer1, input.Answer2, input.Answer3}) {
		s.logger.Info("Rejected password reset", zap.Uint("user_id", user.ID))
		return errResetRejected
	}

	if err := user.ResetPassword(input.NewPassword); err != nil {
		return apperr.NewInfrastructure("hash password", err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return apperr.FromDB(err, "update password", "User")
	}
	return nil
}

func (s *AccountService) UpdateAnswers(ctx context.Context, userID uint, input AnswersInput) error {
	if err := validateInput(input); err != nil {
		return err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.ReplaceSecurityAnswers(entity.SecurityAnswers{input.Answer1, input.Answer2, input.Answer3}); err != nil {
		return apperr.NewInfrastructure("hash security answers", err)
	}

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"security_answer1": user.SecurityAnswer1,
		"security_answer2": user.SecurityAnswer2,
		"security_answer3": user.SecurityAnswer3,
	}).Error
	return apperr.FromDB(err, "update security answers", "User")
}

// TypeCount is the number of datasets of one publication type.
type TypeCount struct {
	Type  entity.PublicationType
	Count int64
}

// ProfileSummary is the owner's view of their activity.
type ProfileSummary struct {
	User              *entity.User
	TotalDatasets     int64
	PublishedDatasets int64
	DraftDatasets     int64
	Downloads         int64
	Views             int64
	PublicationTypes  []TypeCount
	Page              int
	Pages             int
	Datasets          []entity.Dataset
}

// Summary returns a page of the user's datasets, newest first, with
// counters over all of them. Pages start at 1.
func (s *AccountService) Summary(ctx context.Context, userID uint, page int) (*ProfileSummary, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	db := s.db.WithContext(ctx)
	summary := &ProfileSummary{User: user, Page: page}

	owned := db.Model(&entity.Dataset{}).Select("id").Where("user_id = ?", userID)

	if err := db.Model(&entity.Dataset{}).Where("user_id = ?", userID).Count(&summary.TotalDatasets).Error; err != nil {
		return nil, apperr.FromDB(err, "count datasets", "Dataset")
	}
	if err := db.Model(&entity.Dataset{}).Where("user_id = ? AND status = ?", userID, entity.StatusPublished).Count(&summary.PublishedDatasets).Error; err != nil {
		return nil, apperr.FromDB(err, "count published datasets", "Dataset")
	}
	summary.DraftDatasets = summary.TotalDatasets - summary.PublishedDatasets

	if err := db.Model(&entity.DownloadRecord{}).Where("dataset_id IN (?)", owned).Count(&summary.Downloads).Error; err != nil {
		return nil, apperr.FromDB(err, "count downloads", "Dataset")
	}
	if err := db.Model(&entity.ViewRecord{}).Where("dataset_id IN (?)", owned).Count(&summary.Views).Error; err != nil {
		return nil, apperr.FromDB(err, "count views", "Dataset")
	}

	err = db.Table("ds_meta_data").
		Select("ds_meta_data.publication_type AS type, COUNT(*) AS count").
		Joins("JOIN datasets ON datasets.id = ds_meta_data.dataset_id").
		Where("datasets.user_id = ? AND datasets.deleted_at IS NULL AND ds_meta_data.deleted_at IS NULL", userID).
		Group("ds_meta_data.publication_type").
		Order("ds_meta_data.publication_type").
		Scan(&summary.PublicationTypes).Error
	if err != nil {
		return nil, apperr.FromDB(err, "count publication types", "Dataset")
	}

	summary.Pages = int((summary.TotalDatasets + SummaryPageSize - 1) / SummaryPageSize)

	err = preloadDataset(db).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(SummaryPageSize).
		Offset((page - 1) * SummaryPageSize).
		Find(&summary.Datasets).Error
	if err != nil {
		return nil, apperr.FromDB(err, "list datasets", "Dataset")
	}
	return summary, nil
}
