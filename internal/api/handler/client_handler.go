package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

// ClientHandler handles HTTP requests for client relationships.
type ClientHandler struct {
	service ports.ClientService
}

func NewClientHandler(service ports.ClientService) *ClientHandler {
	return &ClientHandler{service: service}
}

func (r *regionRequest) toDomain() *domain.Region {
	if r == nil {
		return nil
	}
	return &domain.Region{Timezone: r.Timezone, Currency: r.Currency, Country: r.Country}
}

// Create adds a client for the authenticated user.
//
// @Summary      Add a client
// @Description  Registered counterparts receive an add request and start as pending; others are active immediately.
// @Tags         clients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createClientRequest  true  "Client"
// @Success      201   {object}  clientResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /clients [post]
func (h *ClientHandler) Create(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req createClientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	client, err := h.service.Create(c.Request().Context(), ports.CreateClientInput{
		OwnerID:     userID,
		Name:        req.Name,
		Email:       req.Email,
		CompanyName: req.CompanyName,
		Notes:       req.Notes,
		Region:      req.Region.toDomain(),
	})
	if err != nil {
		return err
	}

	msg := "Client added successfully"
	if client.Status == domain.ClientPending {
		msg = "Client request sent successfully"
	}
	return c.JSON(http.StatusCreated, clientResponse{Success: true, Message: msg, Client: client})
}

// Respond accepts or rejects a pending add request addressed to the caller.
//
// @Summary      Respond to a client add request
// @Tags         clients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Client id"
// @Param        body  body      respondRequest  true  "Decision"
// @Success      200   {object}  clientResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /clients/{id}/respond [post]
func (h *ClientHandler) Respond(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req respondRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	client, err := h.service.Respond(c.Request().Context(), c.Param("id"), userID, *req.Accept)
	if err != nil {
		return err
	}

	msg := "Client request rejected"
	if *req.Accept {
		msg = "Client request accepted successfully"
	}
	return c.JSON(http.StatusOK, clientResponse{Success: true, Message: msg, Client: client})
}

// List returns the caller's clients, newest first.
//
// @Summary      List clients
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Exact status"
// @Param        search  query     string  false  "Matches name, email or company"
// @Success      200     {object}  clientListResponse
// @Router       /clients [get]
func (h *ClientHandler) List(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	clients, err := h.service.List(c.Request().Context(), ports.ListClientsFilter{
		OwnerID: userID,
		Status:  c.QueryParam("status"),
		Search:  c.QueryParam("search"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clientListResponse{Success: true, Clients: clients})
}

// SearchByEmail finds the caller's clients and other users by email fragment.
//
// @Summary      Search by email
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        email  query     string  true  "Email fragment"
// @Success      200    {object}  clientSearchResponse
// @Failure      400    {object}  errorResponse
// @Router       /clients/search/email [get]
func (h *ClientHandler) SearchByEmail(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	res, err := h.service.SearchByEmail(c.Request().Context(), userID, c.QueryParam("email"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clientSearchResponse{
		Success:        true,
		Clients:        res.Clients,
		PotentialUsers: res.PotentialUsers,
	})
}

// Stats summarises schedules per active client.
//
// @Summary      Client statistics
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  clientStatsResponse
// @Router       /clients/stats [get]
func (h *ClientHandler) Stats(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clientStatsResponse{Success: true, Stats: stats})
}

// Get returns one of the caller's clients.
//
// @Summary      Get a client
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Client id"
// @Success      200  {object}  clientResponse
// @Failure      404  {object}  errorResponse
// @Router       /clients/{id} [get]
func (h *ClientHandler) Get(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	client, err := h.service.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clientResponse{Success: true, Client: client})
}

// Update patches one of the caller's clients.
//
// @Summary      Update a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Client id"
// @Param        body  body      updateClientRequest  true  "Fields to change"
// @Success      200   {object}  clientResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /clients/{id} [put]
func (h *ClientHandler) Update(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req updateClientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	patch := ports.UpdateClientInput{
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Notes:       req.Notes,
		Region:      req.Region.toDomain(),
	}
	if req.Status != nil {
		status := domain.ClientStatus(*req.Status)
		patch.Status = &status
	}

	client, err := h.service.Update(c.Request().Context(), userID, c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clientResponse{Success: true, Message: "Client updated successfully", Client: client})
}

// Delete removes one of the caller's clients.
//
// @Summary      Delete a client
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Client id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /clients/{id} [delete]
func (h *ClientHandler) Delete(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Client deleted successfully"})
}
