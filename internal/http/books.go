package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/catalog"
)

const adminPath = "/admin"

// bookForm is the admin add/edit form.
type bookForm struct {
	Title    string `form:"title"`
	Author   string `form:"author"`
	ISBN     string `form:"isbn"`
	DateRead string `form:"dateRead"`
	Score    string `form:"score"`
	Review   string `form:"bookReview"`
	Note     string `form:"bookNote"`
}

func (f bookForm) input() catalog.BookInput {
	return catalog.BookInput{
		Title:    f.Title,
		Author:   f.Author,
		ISBN:     f.ISBN,
		DateRead: f.DateRead,
		Score:    f.Score,
		Review:   f.Review,
		Note:     f.Note,
	}
}

func formFromDetail(d *catalog.BookDetail) bookForm {
	return bookForm{
		Title:    d.Book.Title,
		Author:   d.Book.Author,
		ISBN:     d.Book.ISBN,
		DateRead: d.Book.FormattedDateRead(),
		Score:    strconv.Itoa(d.Book.Score),
		Review:   d.Book.Review,
		Note:     d.Note,
	}
}

// adminView describes the admin page in add or edit mode.
type adminView struct {
	Heading string
	Submit  string
	Action  string
	BookID  uint
	Form    bookForm
	Error   string
}

func addView() adminView {
	return adminView{Heading: "Add a New Book", Submit: "Add", Action: "/add"}
}

func editView(id uint) adminView {
	return adminView{
		Heading: "Edit Book",
		Submit:  "Update",
		Action:  fmt.Sprintf("/admin/edit/%d", id),
		BookID:  id,
	}
}

// BooksController serves the public catalog pages and the admin pages.
type BooksController struct {
	catalog *catalog.Service
	logger  *zap.Logger
}

func NewBooksController(svc *catalog.Service, logger *zap.Logger) *BooksController {
	return &BooksController{
		catalog: svc,
		logger:  logger.Named("books"),
	}
}

// List returns a handler for a public listing in the given order.
func (bc *BooksController) List(key catalog.SortKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bc.catalog.ListBooks(c.Request.Context(), key)
		if err != nil {
			respondInternalError(c, bc.logger, err, "list books")
			return
		}

		renderHTML(c, http.StatusOK, "index", gin.H{
			"Books": list,
			"Sort":  string(key),
		})
	}
}

// BookPage handles GET /:id
func (bc *BooksController) BookPage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := bc.catalog.GetBookDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondNotFound(c)
			return
		}
		respondInternalError(c, bc.logger, err, "get book")
		return
	}

	renderHTML(c, http.StatusOK, "book", gin.H{
		"Title":        detail.Book.Title,
		"Book":         detail.Book,
		"RenderedNote": detail.RenderedNote,
	})
}

// AdminPage handles GET /admin
func (bc *BooksController) AdminPage(c *gin.Context) {
	bc.renderAdmin(c, http.StatusOK, addView())
}

// AddBook handles POST /add
func (bc *BooksController) AddBook(c *gin.Context) {
	var form bookForm
	if err := c.ShouldBind(&form); err != nil {
		view := addView()
		view.Error = "Invalid form submission"
		bc.renderAdmin(c, http.StatusBadRequest, view)
		return
	}

	if _, err := bc.catalog.AddBook(c.Request.Context(), form.input()); err != nil {
		var verr *catalog.ValidationError
		if errors.As(err, &verr) {
			view := addView()
			view.Form = form
			view.Error = validationMessage(verr)
			bc.renderAdmin(c, http.StatusBadRequest, view)
			return
		}
		respondInternalError(c, bc.logger, err, "add book")
		return
	}

	c.Redirect(http.StatusFound, adminPath)
}

// EditPage handles GET /admin/edit/:id
func (bc *BooksController) EditPage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := bc.catalog.GetBookDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondNotFound(c)
			return
		}
		respondInternalError(c, bc.logger, err, "get book for edit")
		return
	}

	view := editView(id)
	view.Form = formFromDetail(detail)
	bc.renderAdmin(c, http.StatusOK, view)
}

// EditBook handles POST /admin/edit/:id
func (bc *BooksController) EditBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var form bookForm
	if err := c.ShouldBind(&form); err != nil {
		view := editView(id)
		view.Error = "Invalid form submission"
		bc.renderAdmin(c, http.StatusBadRequest, view)
		return
	}

	if err := bc.catalog.EditBook(c.Request.Context(), id, form.input()); err != nil {
		var verr *catalog.ValidationError
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			respondNotFound(c)
		case errors.As(err, &verr):
			view := editView(id)
			view.Form = form
			view.Error = validationMessage(verr)
			bc.renderAdmin(c, http.StatusBadRequest, view)
		default:
			respondInternalError(c, bc.logger, err, "edit book")
		}
		return
	}

	c.Redirect(http.StatusFound, adminPath)
}

// DeleteBook handles GET /admin/delete/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.catalog.DeleteBook(c.Request.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondNotFound(c)
			return
		}
		respondInternalError(c, bc.logger, err, "delete book")
		return
	}

	c.Redirect(http.StatusFound, adminPath)
}

func (bc *BooksController) renderAdmin(c *gin.Context, status int, view adminView) {
	list, err := bc.catalog.AdminBooks(c.Request.Context())
	if err != nil {
		respondInternalError(c, bc.logger, err, "list admin books")
		return
	}

	renderHTML(c, status, "admin", gin.H{
		"Title": view.Heading,
		"Books": list,
		"View":  view,
	})
}

func validationMessage(err *catalog.ValidationError) string {
	switch err.Field {
	case "title":
		return "Title is required"
	case "date read":
		return "Date read must be a date in YYYY-MM-DD format"
	case "score":
		return fmt.Sprintf("Score must be a number between %d and %d", catalog.MinScore, catalog.MaxScore)
	default:
		return err.Error()
	}
}
