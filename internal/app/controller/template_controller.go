package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/staycert-backend/internal/app/service"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
)

type TemplateController struct {
	templateService  service.TemplateService
	catalogueService service.CatalogueService
}

func NewTemplateController(templateService service.TemplateService, catalogueService service.CatalogueService) *TemplateController {
	return &TemplateController{
		templateService:  templateService,
		catalogueService: catalogueService,
	}
}

// ListTemplates
// GET /api/v1/templates?property_type_id=
func (ctrl *TemplateController) ListTemplates(c *gin.Context) {
	raw := c.Query("property_type_id")
	propertyTypeID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || propertyTypeID == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "property_type_id is required")
		return
	}

	templates, err := ctrl.templateService.ListTemplates(uint(propertyTypeID))
	if err != nil {
		respondError(c, "Failed to list templates", err, map[string]interface{}{
			"property_type_id": propertyTypeID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"templates": templates,
	})
}

// CreateTemplate
// POST /api/v1/templates
func (ctrl *TemplateController) CreateTemplate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req service.CreateTemplateInput
	if !bindJSON(c, &req) {
		return
	}

	template, err := ctrl.templateService.CreateTemplate(req, actor)
	if err != nil {
		respondError(c, "Failed to create template", err, map[string]interface{}{
			"property_type_id": req.PropertyTypeID,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"template": template,
	})
}

// ActivateTemplate
// POST /api/v1/templates/:id/activate
func (ctrl *TemplateController) ActivateTemplate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	template, err := ctrl.templateService.ActivateTemplate(id, actor)
	if err != nil {
		respondError(c, "Failed to activate template", err, map[string]interface{}{
			"template_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"template": template,
	})
}

// ListPropertyTypes
// GET /api/v1/property-types
func (ctrl *TemplateController) ListPropertyTypes(c *gin.Context) {
	types, err := ctrl.catalogueService.ListPropertyTypes()
	if err != nil {
		respondError(c, "Failed to list property types", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"property_types": types,
	})
}

// ListChecklistItems
// GET /api/v1/property-types/:id/checklist
func (ctrl *TemplateController) ListChecklistItems(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := ctrl.catalogueService.ChecklistItems(id)
	if err != nil {
		respondError(c, "Failed to list checklist items", err, map[string]interface{}{
			"property_type_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
	})
}
