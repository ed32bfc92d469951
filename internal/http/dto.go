package http

import "github.com/example/flexspace/internal/application"

type userDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func toUserDTO(user application.User) userDTO {
	dto := userDTO{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      string(user.Role),
	}
	if !user.CreatedAt.IsZero() {
		dto.CreatedAt = formatTime(user.CreatedAt)
	}
	if !user.UpdatedAt.IsZero() {
		dto.UpdatedAt = formatTime(user.UpdatedAt)
	}
	return dto
}

type spaceDTO struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Type               string  `json:"type"`
	Capacity           int     `json:"capacity"`
	Floor              *string `json:"floor"`
	Building           *string `json:"building"`
	OpenTime           string  `json:"openTime"`
	CloseTime          string  `json:"closeTime"`
	IsActive           bool    `json:"isActive"`
	ActiveReservations *int    `json:"activeReservations,omitempty"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

func toSpaceDTO(space application.Space) spaceDTO {
	return spaceDTO{
		ID:        space.ID,
		Name:      space.Name,
		Type:      string(space.Type),
		Capacity:  space.Capacity,
		Floor:     space.Floor,
		Building:  space.Building,
		OpenTime:  space.OpenTime,
		CloseTime: space.CloseTime,
		IsActive:  space.IsActive,
		CreatedAt: formatTime(space.CreatedAt),
		UpdatedAt: formatTime(space.UpdatedAt),
	}
}

func toSpaceDetailDTO(detail application.SpaceDetail) spaceDTO {
	dto := toSpaceDTO(detail.Space)
	count := detail.ActiveReservations
	dto.ActiveReservations = &count
	return dto
}

func toSpaceDTOs(spaces []application.Space) []spaceDTO {
	out := make([]spaceDTO, 0, len(spaces))
	for _, space := range spaces {
		out = append(out, toSpaceDTO(space))
	}
	return out
}

type reservationDTO struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	SpaceID     string    `json:"spaceId"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Status      string    `json:"status"`
	QRCode      *string   `json:"qrCode"`
	QRSignature *string   `json:"qrSignature"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
	Space       *spaceDTO `json:"space,omitempty"`
	User        *userDTO  `json:"user,omitempty"`
}

func toReservationDTO(res application.Reservation) reservationDTO {
	dto := reservationDTO{
		ID:          res.ID,
		UserID:      res.UserID,
		SpaceID:     res.SpaceID,
		StartTime:   formatTime(res.StartTime),
		EndTime:     formatTime(res.EndTime),
		Status:      string(res.Status),
		QRCode:      res.QRCode,
		QRSignature: res.QRSignature,
		CreatedAt:   formatTime(res.CreatedAt),
		UpdatedAt:   formatTime(res.UpdatedAt),
	}
	if res.Space != nil {
		space := toSpaceDTO(*res.Space)
		dto.Space = &space
	}
	if res.User != nil {
		user := toUserDTO(*res.User)
		dto.User = &user
	}
	return dto
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	out := make([]reservationDTO, 0, len(reservations))
	for _, res := range reservations {
		out = append(out, toReservationDTO(res))
	}
	return out
}

type accessLogDTO struct {
	ID            string   `json:"id"`
	ReservationID string   `json:"reservationId"`
	UserID        string   `json:"userId"`
	AccessTime    string   `json:"accessTime"`
	AccessGranted bool     `json:"accessGranted"`
	Method        string   `json:"method"`
	User          *userDTO `json:"user,omitempty"`
}

func toAccessLogDTOs(logs []application.AccessLog) []accessLogDTO {
	out := make([]accessLogDTO, 0, len(logs))
	for _, entry := range logs {
		dto := accessLogDTO{
			ID:            entry.ID,
			ReservationID: entry.ReservationID,
			UserID:        entry.UserID,
			AccessTime:    formatTime(entry.AccessTime),
			AccessGranted: entry.AccessGranted,
			Method:        string(entry.Method),
		}
		if entry.User != nil {
			user := toUserDTO(*entry.User)
			user.Email = ""
			dto.User = &user
		}
		out = append(out, dto)
	}
	return out
}
