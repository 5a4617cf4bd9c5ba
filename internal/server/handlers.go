package server

import (
	"errors"
	"io"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"pdf-rag/internal/models"
)

type handler struct {
	svc Service
}

func (h *handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *handler) upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest("No file uploaded")
	}

	f, err := fh.Open()
	if err != nil {
		return fail(err, "Failed to process PDF")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fail(err, "Failed to process PDF")
	}

	res, err := h.svc.Upload(c.UserContext(), fh.Filename, data)
	if err != nil {
		return fail(err, "Failed to process PDF")
	}
	return c.JSON(res)
}

func (h *handler) query(c *fiber.Ctx) error {
	ans, err := h.svc.Query(c.UserContext(), c.Query("query"))
	if err != nil {
		return fail(err, queryDetail(err))
	}
	return c.JSON(ans)
}

func (h *handler) pdf(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("filename"))
	if err != nil {
		return badRequest("Invalid filename")
	}

	data, err := h.svc.OpenPDF(name)
	if err != nil {
		return fail(err, "Failed to read file")
	}
	c.Type("pdf")
	return c.Send(data)
}

func queryDetail(err error) string {
	switch {
	case errors.Is(err, models.ErrEmbeddingUnavailable):
		return "Failed to embed query"
	case errors.Is(err, models.ErrStorage):
		return "Failed to read stored documents"
	case errors.Is(err, models.ErrAnswerGeneration):
		return "Failed to generate answer"
	default:
		return "Failed to process query"
	}
}
