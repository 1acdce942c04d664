package handlers

import (
	stdErrors "errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/philsca/registrar/internal/services"
	"github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/response"
)

const newsImageField = "image"

type NewsHandler struct {
	svc *services.NewsService
}

func NewNewsHandler(svc *services.NewsService) *NewsHandler {
	return &NewsHandler{svc: svc}
}

// GET /api/news
func (h *NewsHandler) List(c *gin.Context) {
	items, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// GET /api/news/:id
func (h *NewsHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(requestContext(c), pathParam(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// POST /api/news (multipart: title, description, image)
func (h *NewsHandler) Publish(c *gin.Context) {
	image, closeImage, err := formImage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeImage()

	item, err := h.svc.Publish(requestContext(c), services.PublishNewsInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Image:       image,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// PUT /api/news/:id (multipart: title, description, optional image)
func (h *NewsHandler) Update(c *gin.Context) {
	image, closeImage, err := formImage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeImage()

	item, err := h.svc.Update(requestContext(c), pathParam(c, "id"), services.UpdateNewsInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Image:       image,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// DELETE /api/news/:id
func (h *NewsHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), pathParam(c, "id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// formImage opens the optional uploaded image. A missing file yields a nil image.
func formImage(c *gin.Context) (*services.NewsImage, func(), error) {
	noop := func() {}

	header, err := c.FormFile(newsImageField)
	if stdErrors.Is(err, http.ErrMissingFile) || stdErrors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, errors.NewBadRequest("invalid multipart payload")
	}

	file, err := header.Open()
	if err != nil {
		return nil, noop, errors.NewBadRequest("unable to read uploaded image")
	}
	return &services.NewsImage{Name: header.Filename, Reader: file}, closer(file), nil
}

func closer(file multipart.File) func() {
	return func() { _ = file.Close() }
}
