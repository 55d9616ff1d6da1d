package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"sdi-exam/roster/internal/characters"

	"github.com/gin-gonic/gin"
)

// characterService is the subset of *characters.Service used by the handlers.
type characterService interface {
	List(ctx context.Context) ([]characters.Character, error)
	Get(ctx context.Context, id uint) (*characters.Character, error)
	Create(ctx context.Context, c *characters.Character) error
	Update(ctx context.Context, c *characters.Character) error
	Delete(ctx context.Context, id uint) error
}

// characterInput is the request body for create and update.
type characterInput struct {
	Nume   string `json:"Nume" binding:"required" example:"Mage"`
	Poza   string `json:"Poza" example:"/images/mage.jpg"`
	Health int    `json:"Health" binding:"gte=0" example:"70"`
	Armor  int    `json:"Armor" binding:"gte=0" example:"30"`
	Mana   int    `json:"Mana" binding:"gte=0" example:"100"`
}

func (in characterInput) toCharacter(id uint) *characters.Character {
	return &characters.Character{
		ID:     id,
		Nume:   in.Nume,
		Poza:   in.Poza,
		Health: in.Health,
		Armor:  in.Armor,
		Mana:   in.Mana,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// CharacterHandler serves /api/characters.
type CharacterHandler struct {
	chars characterService
}

// List handles GET /api/characters.
//
//	@Summary	List characters
//	@Tags		characters
//	@Produce	json
//	@Success	200	{array}		characters.Character
//	@Failure	500	{object}	errorResponse
//	@Router		/api/characters [get]
func (h *CharacterHandler) List(c *gin.Context) {
	out, err := h.chars.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/characters/:id.
//
//	@Summary	Get a character
//	@Tags		characters
//	@Produce	json
//	@Param		id	path		int	true	"Character ID"
//	@Success	200	{object}	characters.Character
//	@Failure	400	{object}	errorResponse
//	@Failure	404	{object}	errorResponse
//	@Router		/api/characters/{id} [get]
func (h *CharacterHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	out, err := h.chars.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Create handles POST /api/characters.
//
//	@Summary	Create a character
//	@Tags		characters
//	@Accept		json
//	@Produce	json
//	@Param		character	body		characterInput	true	"Character"
//	@Success	201			{object}	characters.Character
//	@Failure	400			{object}	errorResponse
//	@Failure	401			{object}	errorResponse
//	@Router		/api/characters [post]
func (h *CharacterHandler) Create(c *gin.Context) {
	var in characterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ch := in.toCharacter(0)
	if err := h.chars.Create(c.Request.Context(), ch); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ch)
}

// Update handles PUT /api/characters/:id.
//
//	@Summary	Replace a character
//	@Tags		characters
//	@Accept		json
//	@Produce	json
//	@Param		id			path		int				true	"Character ID"
//	@Param		character	body		characterInput	true	"Character"
//	@Success	200			{object}	characters.Character
//	@Failure	400			{object}	errorResponse
//	@Failure	404			{object}	errorResponse
//	@Router		/api/characters/{id} [put]
func (h *CharacterHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in characterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ch := in.toCharacter(id)
	if err := h.chars.Update(c.Request.Context(), ch); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// Delete handles DELETE /api/characters/:id.
//
//	@Summary	Delete a character
//	@Tags		characters
//	@Param		id	path	int	true	"Character ID"
//	@Success	204
//	@Failure	404	{object}	errorResponse
//	@Router		/api/characters/{id} [delete]
func (h *CharacterHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.chars.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CharacterHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, characters.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	slog.ErrorContext(c.Request.Context(), "character request failed",
		"method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}
	return uint(id), true
}
