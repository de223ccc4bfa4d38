package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/stwalsh4118/propsearch/internal/errors"
	"github.com/stwalsh4118/propsearch/internal/models"
)

// SearchRequest is the body of search submissions. Category and type default
// to Residential and Flat.
type SearchRequest struct {
	City             string `json:"city" binding:"max=100"`
	Area             string `json:"area" binding:"max=100"`
	MaxPrice         string `json:"max_price" binding:"max=50"`
	PropertyCategory string `json:"property_category" binding:"omitempty,max=50"`
	PropertyType     string `json:"property_type" binding:"omitempty,max=50"`
	UseAPI           bool   `json:"use_api"`
}

// Params converts the request into search parameters.
func (r SearchRequest) Params() (models.SearchParams, map[string]interface{}) {
	params := models.SearchParams{
		City:             strings.TrimSpace(r.City),
		Area:             strings.TrimSpace(r.Area),
		MaxPriceText:     r.MaxPrice,
		PropertyCategory: models.CategoryResidential,
		PropertyType:     models.TypeFlat,
		UseAPI:           r.UseAPI,
	}

	problems := map[string]interface{}{}
	if r.PropertyCategory != "" {
		category, err := models.ParsePropertyCategory(r.PropertyCategory)
		if err != nil {
			problems["property_category"] = "Must be one of: Residential, Commercial"
		}
		params.PropertyCategory = category
	}
	if r.PropertyType != "" {
		propertyType, err := models.ParsePropertyType(r.PropertyType)
		if err != nil {
			problems["property_type"] = "Must be one of: Flat, Independent House"
		}
		params.PropertyType = propertyType
	}

	if len(problems) > 0 {
		return models.SearchParams{}, problems
	}
	return params, nil
}

// bindSearchRequest decodes and validates the body, writing the error
// response itself. It reports whether the handler should continue.
func bindSearchRequest(c *gin.Context) (models.SearchParams, bool) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return models.SearchParams{}, false
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return models.SearchParams{}, false
	}

	params, problems := req.Params()
	if problems != nil {
		apierrors.BadRequest(c, "Invalid search criteria", problems)
		return models.SearchParams{}, false
	}
	return params, true
}
