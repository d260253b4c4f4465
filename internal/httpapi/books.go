package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-lending/internal/logging"
	"library-lending/library"
)

type BooksController struct {
	store Store
	log   logging.Logger
}

func NewBooksController(store Store, log logging.Logger) *BooksController {
	return &BooksController{store: store, log: log}
}

type createBookRequest struct {
	Title     string `json:"title"`
	PageCount int    `json:"page_count"`
}

type updateBookRequest struct {
	Title     *string `json:"title"`
	PageCount *int    `json:"page_count"`
}

type borrowRequest struct {
	UserID  int64  `json:"user_id" binding:"required"`
	DueDate string `json:"due_date"`
}

// List returns the catalogue; ?available=true narrows it to books on the shelf.
func (bc *BooksController) List(c *gin.Context) {
	var (
		books []*library.Book
		err   error
	)
	if queryFlag(c, "available") {
		books, err = bc.store.GetAvailableBooks(c.Request.Context())
	} else {
		books, err = bc.store.GetAllBooks(c.Request.Context())
	}
	if err != nil {
		respondInternalError(c, bc.log, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func (bc *BooksController) Create(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	ctx := c.Request.Context()
	id, err := bc.store.AddBook(ctx, req.Title, req.PageCount)
	if err != nil {
		respondLibraryError(c, bc.log, err, "add book")
		return
	}
	book, err := bc.store.GetBook(ctx, id)
	if err != nil {
		respondInternalError(c, bc.log, err, "add book")
		return
	}
	c.JSON(http.StatusCreated, book)
}

// Get returns the book together with its open loan and borrower, if any.
func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	status, err := bc.store.BookStatus(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, bc.log, err, "get book")
		return
	}
	if status == nil {
		respondNotFound(c, "book")
		return
	}
	c.JSON(http.StatusOK, status)
}

// Update changes title and/or page count. Deleted books are not editable.
func (bc *BooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	book, err := bc.store.GetBook(ctx, id)
	if err != nil {
		respondInternalError(c, bc.log, err, "update book")
		return
	}
	if book == nil || book.Deleted {
		respondNotFound(c, "book")
		return
	}
	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.PageCount != nil {
		book.PageCount = *req.PageCount
	}
	if _, err := bc.store.UpdateBook(ctx, book); err != nil {
		respondLibraryError(c, bc.log, err, "update book")
		return
	}
	c.JSON(http.StatusOK, book)
}

func (bc *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	purged, err := bc.store.DeleteBook(c.Request.Context(), id)
	if err != nil {
		respondLibraryError(c, bc.log, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted", gin.H{"id": id, "purged": purged})
}

// Borrow lends the book to the user in the body. An omitted due_date means
// the default loan period.
func (bc *BooksController) Borrow(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "user_id is required")
		return
	}

	rec, err := bc.store.Lend(c.Request.Context(), id, req.UserID, req.DueDate)
	if err != nil {
		respondLibraryError(c, bc.log, err, "borrow book")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (bc *BooksController) Return(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, err := bc.store.ReturnBook(c.Request.Context(), id)
	if err != nil {
		respondLibraryError(c, bc.log, err, "return book")
		return
	}
	respondSuccess(c, "book returned", gin.H{"book_id": id, "user_id": userID})
}
