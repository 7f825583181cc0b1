package handler

import "kanban-tracker/internal/microservices/operator/service"

type Handler struct {
	OperatorHandler *OperatorHandler
}

func New(svc service.OperatorServiceInterface) *Handler {
	return &Handler{
		OperatorHandler: NewOperatorHandler(svc),
	}
}
