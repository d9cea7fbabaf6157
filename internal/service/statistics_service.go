package service

import (
	"context"
	"time"

	"bookinventory/internal/apperror"
	"bookinventory/internal/model"
	"bookinventory/internal/repository"
)

const statisticsTopLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetStatistics reports the current catalog snapshot plus the stock movements
// logged between startDate and endDate inclusive.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	if endDate.Before(startDate) {
		return model.StatisticsResponse{}, apperror.Validation("start_date must not be after end_date")
	}

	response := model.StatisticsResponse{
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}

	catalog, err := s.repo.GetCatalogTotals(ctx)
	if err != nil {
		return response, err
	}
	response.TotalBooks = catalog.TotalBooks
	response.AvailableBooks = catalog.AvailableBooks
	response.OutOfStockBooks = catalog.OutOfStockBooks
	response.TotalStockUnits = catalog.StockUnits
	response.InventoryValue = catalog.InventoryValue.Round(2)

	moves, err := s.repo.GetMovementTotals(ctx, startDate, endDate)
	if err != nil {
		return response, err
	}
	response.UnitsIn = moves.UnitsIn
	response.UnitsOut = moves.UnitsOut
	response.MovementCount = moves.Movements

	if response.TopGenres, err = s.repo.GetTopGenres(ctx, statisticsTopLimit); err != nil {
		return response, err
	}
	if response.TopStockOutBooks, err = s.repo.GetTopStockOut(ctx, startDate, endDate, statisticsTopLimit); err != nil {
		return response, err
	}
	if response.TopGenres == nil {
		response.TopGenres = []model.GenreRanking{}
	}
	if response.TopStockOutBooks == nil {
		response.TopStockOutBooks = []model.BookRanking{}
	}

	return response, nil
}
