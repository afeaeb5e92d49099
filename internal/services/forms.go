package services

import (
	"errors"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kerem-kaynak/uvlhub/internal/apperr"
)

type AuthorInput struct {
	Name        string `json:"name" validate:"required"`
	Affiliation string `json:"affiliation"`
	ORCID       string `json:"orcid"`
}

type FeatureModelInput struct {
	UVLFilename     string        `json:"uvl_filename" validate:"required"`
	Title           string        `json:"title"`
	Description     string        `json:"desc"`
	PublicationType string        `json:"publication_type"`
	PublicationDOI  string        `json:"publication_doi" validate:"omitempty,doi_or_url"`
	Tags            string        `json:"tags"`
	UVLVersion      string        `json:"uvl_version"`
	Authors         []AuthorInput `json:"authors" validate:"dive"`
}

// DatasetInput is the upload form. Every feature model references a file
// already present in the owner's staging area.
type DatasetInput struct {
	Title           string              `json:"title" form:"title" validate:"required"`
	Description     string              `json:"desc" form:"desc"`
	PublicationType string              `json:"publication_type" form:"publication_type"`
	PublicationDOI  string              `json:"publication_doi" form:"publication_doi" validate:"omitempty,doi_or_url"`
	Tags            string              `json:"tags" form:"tags"`
	Authors         []AuthorInput       `json:"authors" validate:"dive"`
	FeatureModels   []FeatureModelInput `json:"feature_models" validate:"required,min=1,dive"`
}

// EditInput replaces the editable metadata of a draft. Authors are kept
// when nil.
type EditInput struct {
	Title           string        `json:"title" form:"title" validate:"required"`
	Description     string        `json:"desc" form:"desc" validate:"required"`
	PublicationType string        `json:"publication_type" form:"publication_type"`
	PublicationDOI  string        `json:"publication_doi" form:"publication_doi" validate:"omitempty,doi_or_url"`
	Tags            string        `json:"tags" form:"tags"`
	Authors         []AuthorInput `json:"authors" validate:"omitempty,dive"`
}

type SignupInput struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
	Name     string `json:"name" form:"name" validate:"required"`
	Surname  string `json:"surname" form:"surname" validate:"required"`
	Answer1  string `json:"answer1" form:"answer1" validate:"required"`
	Answer2  string `json:"answer2" form:"answer2" validate:"required"`
	Answer3  string `json:"answer3" form:"answer3" validate:"required"`
}

type ResetPasswordInput struct {
	Email       string `json:"email" form:"email" validate:"required,email"`
	Answer1     string `json:"answer1" form:"answer1" validate:"required"`
	Answer2     string `json:"answer2" form:"answer2" validate:"required"`
	Answer3     string `json:"answer3" form:"answer3" validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" validate:"required,min=6"`
}

type AnswersInput struct {
	Answer1 string `json:"answer1" form:"answer1" validate:"required"`
	Answer2 string `json:"answer2" form:"answer2" validate:"required"`
	Answer3 string `json:"answer3" form:"answer3" validate:"required"`
}

var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("doi_or_url", isDOIOrURL)
	return v
}

func isDOIOrURL(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if doiPattern.MatchString(value) {
		return true
	}
	u, err := url.Parse(value)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validateInput runs struct validation and converts failures into a
// Validation error keyed by the json field path.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.NewInfrastructure("validate input", err)
	}

	fields := make(map[string][]string)
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		fields[field] = append(fields[field], fieldMessage(fe))
	}
	return apperr.NewValidation(fields)
}

// fieldPath drops the struct name from a namespace such as
// "DatasetInput.feature_models[0].uvl_filename".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.Slice {
			return "At least " + fe.Param() + " entry is required."
		}
		return "Field must be at least " + fe.Param() + " characters long."
	case "email":
		return "Invalid email address."
	case "doi_or_url":
		return "Invalid URL."
	default:
		return "Invalid value."
	}
}
