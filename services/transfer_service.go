package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/repository"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/transfer"
	"github.com/shopspring/decimal"
)

const maxTransferAttempts = 3

// TransferRequest moves part or all of a holding to another platform
type TransferRequest struct {
	UserCryptoID       string          `json:"user_crypto_id" binding:"required"`
	QuantityToTransfer decimal.Decimal `json:"quantity_to_transfer"`
	NetworkFee         decimal.Decimal `json:"network_fee"`
	SendFullQuantity   bool            `json:"send_full_quantity"`
	ToPlatformID       string          `json:"to_platform_id" binding:"required"`
}

// TransferFrom is the source side of a completed transfer
type TransferFrom struct {
	UserCryptoID            string          `json:"user_crypto_id"`
	NetworkFee              decimal.Decimal `json:"network_fee"`
	QuantityToTransfer      decimal.Decimal `json:"quantity_to_transfer"`
	TotalToSubtract         decimal.Decimal `json:"total_to_subtract"`
	RemainingCryptoQuantity decimal.Decimal `json:"remaining_crypto_quantity"`
}

// TransferTo is the destination side of a completed transfer
type TransferTo struct {
	UserCryptoID      string          `json:"user_crypto_id"`
	PlatformID        string          `json:"platform_id"`
	QuantityToReceive decimal.Decimal `json:"quantity_to_receive"`
	NewQuantity       decimal.Decimal `json:"new_quantity"`
}

// TransferResponse describes both holdings after a transfer
type TransferResponse struct {
	CryptoID string       `json:"crypto_id"`
	From     TransferFrom `json:"from"`
	To       TransferTo   `json:"to"`
}

// TransferService applies transfers between platforms
type TransferService struct {
	holdings  UserCryptoStore
	platforms *PlatformService
	caches    *Caches
}

// NewTransferService creates a new transfer service
func NewTransferService(holdings UserCryptoStore, platforms *PlatformService, caches *Caches) *TransferService {
	return &TransferService{holdings: holdings, platforms: platforms, caches: caches}
}

// TransferCrypto debits the source holding and credits the destination as one
// unit. Both holdings are re-read and the calculation redone when another
// write lands in between.
func (s *TransferService) TransferCrypto(ctx context.Context, req TransferRequest) (TransferResponse, error) {
	if _, err := s.platforms.RetrievePlatform(ctx, req.ToPlatformID); err != nil {
		return TransferResponse{}, err
	}

	for attempt := 1; attempt <= maxTransferAttempts; attempt++ {
		resp, err := s.transferOnce(ctx, req)
		if !errors.Is(err, repository.ErrStaleQuantity) {
			return resp, err
		}
		log.Printf("Transfer of holding %s raced with another write (attempt %d)", req.UserCryptoID, attempt)
	}
	return TransferResponse{}, fmt.Errorf("failed to transfer holding %s after %d attempts: %w", req.UserCryptoID, maxTransferAttempts, repository.ErrStaleQuantity)
}

func (s *TransferService) transferOnce(ctx context.Context, req TransferRequest) (TransferResponse, error) {
	source, err := s.holdings.FindByID(ctx, req.UserCryptoID)
	if err != nil {
		return TransferResponse{}, notFound(err, "holding "+req.UserCryptoID)
	}
	if source.PlatformID == req.ToPlatformID {
		return TransferResponse{}, ErrSamePlatform
	}

	var destination *models.UserCrypto
	existing, err := s.holdings.FindByCryptoAndPlatform(ctx, source.CryptoID, req.ToPlatformID)
	switch {
	case err == nil:
		destination = &existing
	case !repository.IsNotFound(err):
		return TransferResponse{}, err
	}

	calcReq := transfer.Request{
		Available:          source.Quantity,
		QuantityToTransfer: req.QuantityToTransfer,
		NetworkFee:         req.NetworkFee,
		SendFullQuantity:   req.SendFullQuantity,
	}
	if destination != nil {
		calcReq.DestinationQuantity = destination.Quantity
	}
	result, err := transfer.Calculate(calcReq)
	if err != nil {
		return TransferResponse{}, err
	}

	credited, err := s.holdings.ApplyTransfer(ctx, repository.TransferChange{
		Source:                 source,
		Remaining:              result.RemainingCryptoQuantity,
		Destination:            destination,
		DestinationPlatformID:  req.ToPlatformID,
		NewDestinationQuantity: result.NewDestinationQuantity,
	})
	if err != nil {
		return TransferResponse{}, err
	}
	s.caches.InvalidateHoldings(ctx, source, credited)

	log.Printf("Transferred %s %s from platform %s to %s (fee %s)",
		result.QuantityToReceive, source.CryptoID, source.PlatformID, req.ToPlatformID, req.NetworkFee)
	if result.RemainingIsZero() {
		log.Printf("Holding %s drained and removed", source.ID)
	}

	return TransferResponse{
		CryptoID: source.CryptoID,
		From: TransferFrom{
			UserCryptoID:            source.ID,
			NetworkFee:              req.NetworkFee,
			QuantityToTransfer:      req.QuantityToTransfer,
			TotalToSubtract:         result.TotalToSubtract,
			RemainingCryptoQuantity: result.RemainingCryptoQuantity,
		},
		To: TransferTo{
			UserCryptoID:      credited.ID,
			PlatformID:        req.ToPlatformID,
			QuantityToReceive: result.QuantityToReceive,
			NewQuantity:       credited.Quantity,
		},
	}, nil
}
