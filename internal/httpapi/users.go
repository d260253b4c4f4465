package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"library-lending/internal/logging"
	"library-lending/library"
)

type UsersController struct {
	store Store
	log   logging.Logger
}

func NewUsersController(store Store, log logging.Logger) *UsersController {
	return &UsersController{store: store, log: log}
}

type userRequest struct {
	Name          *string `json:"name"`
	StudentNumber *string `json:"student_number"`
	Banned        *bool   `json:"banned"`
}

type banRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

// List returns all users. ?student_number=N looks up a single user instead,
// and ?eligible=true leaves out banned users.
func (uc *UsersController) List(c *gin.Context) {
	ctx := c.Request.Context()

	if number := strings.TrimSpace(c.Query("student_number")); number != "" {
		user, err := uc.store.GetUserByStudentNumber(ctx, number)
		if err != nil {
			respondInternalError(c, uc.log, err, "find user")
			return
		}
		if user == nil {
			respondNotFound(c, "user")
			return
		}
		c.JSON(http.StatusOK, user)
		return
	}

	var (
		users []*library.User
		err   error
	)
	if queryFlag(c, "eligible") {
		users, err = uc.store.EligibleBorrowers(ctx)
	} else {
		users, err = uc.store.GetAllUsers(ctx)
	}
	if err != nil {
		respondInternalError(c, uc.log, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

func (uc *UsersController) Create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	user := &library.User{}
	req.apply(user)

	if _, err := uc.store.AddUser(c.Request.Context(), user); err != nil {
		respondLibraryError(c, uc.log, err, "add user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (uc *UsersController) Get(c *gin.Context) {
	user, ok := uc.loadUser(c, "get user")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update applies the fields present in the body.
func (uc *UsersController) Update(c *gin.Context) {
	var req userRequest
	user, ok := uc.loadUser(c, "update user")
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	req.apply(user)

	if _, err := uc.store.UpdateUser(c.Request.Context(), user); err != nil {
		respondLibraryError(c, uc.log, err, "update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete removes the user and, with them, their lending history.
func (uc *UsersController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	n, err := uc.store.DeleteUser(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, uc.log, err, "delete user")
		return
	}
	if n == 0 {
		respondNotFound(c, "user")
		return
	}
	respondSuccess(c, "user deleted", gin.H{"id": id})
}

func (uc *UsersController) SetBan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req banRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "banned is required")
		return
	}
	found, err := uc.store.ToggleUserBan(c.Request.Context(), id, *req.Banned)
	if err != nil {
		respondInternalError(c, uc.log, err, "ban user")
		return
	}
	if !found {
		respondNotFound(c, "user")
		return
	}
	respondSuccess(c, "ban updated", gin.H{"id": id, "banned": *req.Banned})
}

func (uc *UsersController) Lendings(c *gin.Context) {
	user, ok := uc.loadUser(c, "user lendings")
	if !ok {
		return
	}
	records, err := uc.store.GetUserLendingHistory(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, uc.log, err, "user lendings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"lendings": records, "count": len(records)})
}

func (uc *UsersController) Books(c *gin.Context) {
	user, ok := uc.loadUser(c, "user books")
	if !ok {
		return
	}
	books, err := uc.store.GetBorrowedBooksByUser(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, uc.log, err, "user books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func (uc *UsersController) loadUser(c *gin.Context, op string) (*library.User, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	user, err := uc.store.GetUser(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, uc.log, err, op)
		return nil, false
	}
	if user == nil {
		respondNotFound(c, "user")
		return nil, false
	}
	return user, true
}

func (r userRequest) apply(u *library.User) {
	if r.Name != nil {
		u.Name = strings.TrimSpace(*r.Name)
	}
	if r.StudentNumber != nil {
		u.StudentNumber = strings.TrimSpace(*r.StudentNumber)
	}
	if r.Banned != nil {
		u.Banned = *r.Banned
	}
}
