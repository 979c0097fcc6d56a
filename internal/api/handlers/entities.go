package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/entity-store/internal/api/dto"
	"github.com/unifiedui/entity-store/internal/api/middleware"
	domainerrors "github.com/unifiedui/entity-store/internal/domain/errors"
	"github.com/unifiedui/entity-store/internal/domain/models"
	"github.com/unifiedui/entity-store/internal/services/entitystore"
)

// EntitiesHandler handles entity CRUD endpoints.
type EntitiesHandler struct {
	store entitystore.Service
}

// NewEntitiesHandler creates a new EntitiesHandler.
func NewEntitiesHandler(store entitystore.Service) *EntitiesHandler {
	return &EntitiesHandler{store: store}
}

// Save handles POST /entities/:name.
// @Summary Save entity
// @Description Inserts an entity without id, or upserts the fields of an entity with id
// @Tags Entities
// @Accept json
// @Produce json
// @Param name path string true "Entity name"
// @Param base query string false "Entity base"
// @Param request body dto.SaveEntityRequest true "Entity fields"
// @Success 200 {object} dto.EntityResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /entities/{name} [post]
func (h *EntitiesHandler) Save(c *gin.Context) {
	var req dto.SaveEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewBadRequestError("invalid request body", err.Error()))
		return
	}
	if id, ok := req["id"]; ok && id != nil {
		if _, isString := id.(string); !isString {
			middleware.HandleError(c, domainerrors.NewValidationError("invalid entity id", fmt.Sprintf("id must be a string, got %T", id)))
			return
		}
	}

	ent, err := h.store.Save(c.Request.Context(), models.NewEntity(canonFromRequest(c), req))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewEntityResponse(ent))
}

// Load handles GET /entities/:name/:id.
// @Summary Load entity by id
// @Tags Entities
// @Produce json
// @Param name path string true "Entity name"
// @Param id path string true "Entity ID"
// @Param base query string false "Entity base"
// @Success 200 {object} dto.EntityResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /entities/{name}/{id} [get]
func (h *EntitiesHandler) Load(c *gin.Context) {
	h.load(c, entitystore.ByID(c.Param("id")))
}

// LoadByQuery handles POST /entities/:name/load.
// @Summary Load first entity matching a query
// @Tags Entities
// @Accept json
// @Produce json
// @Param name path string true "Entity name"
// @Param base query string false "Entity base"
// @Param request body dto.QueryRequest false "Query"
// @Success 200 {object} dto.EntityResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /entities/{name}/load [post]
func (h *EntitiesHandler) LoadByQuery(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	h.load(c, q)
}

// List handles POST /entities/:name/list.
// @Summary List entities matching a query
// @Tags Entities
// @Accept json
// @Produce json
// @Param name path string true "Entity name"
// @Param base query string false "Entity base"
// @Param request body dto.QueryRequest false "Query"
// @Success 200 {object} dto.ListEntitiesResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /entities/{name}/list [post]
func (h *EntitiesHandler) List(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}

	canon := canonFromRequest(c)
	list, err := h.store.List(c.Request.Context(), canon, q)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListEntitiesResponse(canon, list))
}

// Remove handles DELETE /entities/:name/:id.
// @Summary Remove entity by id
// @Tags Entities
// @Produce json
// @Param name path string true "Entity name"
// @Param id path string true "Entity ID"
// @Param base query string false "Entity base"
// @Param load query bool false "Return the removed entity (default true)"
// @Success 200 {object} dto.EntityResponse
// @Success 204 "Nothing removed, or load=false"
// @Failure 400 {object} middleware.ErrorResponse
// @Router /entities/{name}/{id} [delete]
func (h *EntitiesHandler) Remove(c *gin.Context) {
	q := entitystore.ByID(c.Param("id"))

	if raw := c.Query("load"); raw != "" {
		load, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.HandleError(c, domainerrors.NewBadRequestError("invalid load parameter", err.Error()))
			return
		}
		q = q.WithLoad(load)
	}

	h.remove(c, q)
}

// RemoveByQuery handles POST /entities/:name/remove.
// @Summary Remove entities matching a query
// @Description Removes the first match, or every match with all$
// @Tags Entities
// @Accept json
// @Produce json
// @Param name path string true "Entity name"
// @Param base query string false "Entity base"
// @Param request body dto.QueryRequest false "Query"
// @Success 200 {object} dto.EntityResponse
// @Success 204 "Nothing returned"
// @Failure 400 {object} middleware.ErrorResponse
// @Router /entities/{name}/remove [post]
func (h *EntitiesHandler) RemoveByQuery(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	h.remove(c, q)
}

func (h *EntitiesHandler) load(c *gin.Context, q *entitystore.Query) {
	canon := canonFromRequest(c)
	ent, err := h.store.Load(c.Request.Context(), canon, q)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if ent == nil {
		middleware.HandleError(c, domainerrors.NewNotFoundError("entity", canon.String()))
		return
	}

	c.JSON(http.StatusOK, dto.NewEntityResponse(ent))
}

func (h *EntitiesHandler) remove(c *gin.Context, q *entitystore.Query) {
	ent, err := h.store.Remove(c.Request.Context(), canonFromRequest(c), q)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if ent == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, dto.NewEntityResponse(ent))
}

func canonFromRequest(c *gin.Context) models.Canon {
	return models.Canon{
		Zone: c.Query("zone"),
		Base: c.Query("base"),
		Name: c.Param("name"),
	}
}

// bindQuery parses an optional JSON query body. It writes the error
// response itself and reports false on failure.
func bindQuery(c *gin.Context) (*entitystore.Query, bool) {
	raw := dto.QueryRequest{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&raw); err != nil {
			middleware.HandleError(c, domainerrors.NewBadRequestError("invalid request body", err.Error()))
			return nil, false
		}
	}

	q, err := entitystore.ParseQuery(raw)
	if err != nil {
		middleware.HandleError(c, err)
		return nil, false
	}
	return q, true
}
