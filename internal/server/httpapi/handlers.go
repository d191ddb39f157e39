package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dkosarev/acportal/internal/server/shop"
	"github.com/dkosarev/acportal/internal/shared"
	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrorUnauthorized) {
			// Never reveal whether the username or the password failed.
			writeError(w, http.StatusUnauthorized, "incorrect username or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"token":    result.Token,
		"username": result.Username,
		"isGM":     result.IsGM,
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := s.accounts.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrorValidation):
			writeError(w, http.StatusBadRequest, "username, password and email are required")
		case errors.Is(err, shared.ErrorUsernameAlreadyExists):
			writeError(w, http.StatusConflict, "username already exists")
		case errors.Is(err, shared.ErrorEmailAlreadyExists):
			writeError(w, http.StatusConflict, "email already exists")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "accountId": id})
}

type changePasswordRequest struct {
	Username    string `json:"username"`
	OldPassword string `json:"oldPassword"`
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.accounts.ChangePassword(r.Context(), req.Username, req.OldPassword, req.Email, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrorValidation):
			writeError(w, http.StatusBadRequest, "new password is required")
		case errors.Is(err, shared.ErrorUnauthorized):
			writeError(w, http.StatusUnauthorized, "incorrect username or password")
		case errors.Is(err, shared.ErrorEmailMismatch):
			writeError(w, http.StatusBadRequest, "email does not match the account")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	points, err := s.accounts.GetPoints(r.Context(), claims.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "points": points})
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	chars, err := s.characters.ListByUsername(r.Context(), claims.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type characterDTO struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Race   string `json:"race"`
		Class  string `json:"class"`
		Level  int    `json:"level"`
		Online bool   `json:"online"`
	}

	out := make([]characterDTO, 0, len(chars))
	for _, c := range chars {
		out = append(out, characterDTO{
			ID:     c.GUID,
			Name:   c.Name,
			Race:   c.RaceName(),
			Class:  c.ClassName(),
			Level:  c.Level,
			Online: c.Online,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "characters": out})
}

type itemDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ItemID      int32  `json:"itemId"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Image       string `json:"image"`
	Category    string `json:"category"`
}

func itemToDTO(item *shop.Item) itemDTO {
	return itemDTO{
		ID:          item.ID,
		Name:        item.Name,
		ItemID:      item.ItemID,
		Description: item.Description,
		Price:       item.Price,
		Image:       item.Image,
		Category:    item.Category,
	}
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.shop.Items(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]itemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, itemToDTO(item))
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": out})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req itemDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	item := &shop.Item{
		Name:        req.Name,
		ItemID:      req.ItemID,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
	}
	if item.Category == "" {
		item.Category = "other"
	}

	item, err := s.shop.AddItem(r.Context(), item)
	if err != nil {
		if errors.Is(err, shared.ErrorValidation) {
			writeError(w, http.StatusBadRequest, "name, itemId and a non-negative price are required")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "item": itemToDTO(item)})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req itemDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	item := &shop.Item{
		ID:          id,
		Name:        req.Name,
		ItemID:      req.ItemID,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
	}

	if err := s.shop.UpdateItem(r.Context(), item); err != nil {
		switch {
		case errors.Is(err, shared.ErrorValidation):
			writeError(w, http.StatusBadRequest, "name, itemId and a non-negative price are required")
		case errors.Is(err, shared.ErrorItemNotFound):
			writeError(w, http.StatusNotFound, "item not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := s.shop.DeleteItem(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrorItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type purchaseRequest struct {
	CharacterName string `json:"characterName"`
	ItemID        int64  `json:"itemId"`
	Amount        int64  `json:"amount"`
	Subject       string `json:"subject"`
	Text          string `json:"text"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req purchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.shop.Purchase(r.Context(), claims.Username, req.CharacterName,
		req.ItemID, req.Amount, req.Subject, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrorValidation):
			writeError(w, http.StatusBadRequest, "characterName, itemId and a positive amount are required")
		case errors.Is(err, shared.ErrorItemNotFound):
			writeError(w, http.StatusNotFound, shared.ErrorItemNotFound.Error())
		case errors.Is(err, shared.ErrorInsufficientFunds):
			writeError(w, http.StatusBadRequest, shared.ErrorInsufficientFunds.Error())
		case errors.Is(err, shared.ErrorFulfillmentFailed):
			// The diagnostic is recorded in history; the user only learns
			// the purchase failed, not the internal wiring.
			writeError(w, http.StatusBadGateway, "purchase failed")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "remainingPoints": result.RemainingPoints})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	history, err := s.shop.History(r.Context(), claims.Username, page, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type purchaseDTO struct {
		ID            int64     `json:"id"`
		CharacterName string    `json:"characterName"`
		ItemName      string    `json:"itemName"`
		Price         int64     `json:"price"`
		Amount        int64     `json:"amount"`
		Delivered     bool      `json:"delivered"`
		ErrorMessage  string    `json:"errorMessage,omitempty"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	records := make([]purchaseDTO, 0, len(history.Records))
	for _, p := range history.Records {
		records = append(records, purchaseDTO{
			ID:            p.ID,
			CharacterName: p.CharacterName,
			ItemName:      p.ItemName,
			Price:         p.Price,
			Amount:        p.Amount,
			Delivered:     p.Delivered,
			ErrorMessage:  p.ErrorMessage,
			CreatedAt:     p.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"records":    records,
		"total":      history.Total,
		"page":       history.Page,
		"pageSize":   history.PageSize,
		"totalPages": history.TotalPages,
	})
}

type unblockRequest struct {
	Name      string  `json:"name"`
	PositionX float64 `json:"positionX"`
	PositionY float64 `json:"positionY"`
	PositionZ float64 `json:"positionZ"`
	Map       int     `json:"map"`
}

func (s *Server) handleUnblockCharacter(w http.ResponseWriter, r *http.Request) {
	var req unblockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.characters.Unblock(r.Context(), req.Name, req.PositionX, req.PositionY, req.PositionZ, req.Map)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrorValidation):
			writeError(w, http.StatusBadRequest, "character name is required")
		case errors.Is(err, shared.ErrorNotFound):
			writeError(w, http.StatusNotFound, "character not found")
		case errors.Is(err, shared.ErrorCharacterOnline):
			writeError(w, http.StatusConflict, "character must be offline")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type commandRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleRemoteCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	res := s.commander.Execute(r.Context(), req.Command)
	if !res.Success {
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": res.Output})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": res.Output})
}
