package model

import (
	"time"

	"github.com/google/uuid"
)

type IncomeType string

const (
	IncomeFood IncomeType = "food" // ShopeeFood
	IncomeSPX  IncomeType = "spx"  // SPX Express
)

func (t IncomeType) Valid() bool {
	return t == IncomeFood || t == IncomeSPX
}

type ExpenseCategory string

const (
	ExpenseFuel           ExpenseCategory = "fuel"
	ExpenseParking        ExpenseCategory = "parking"
	ExpenseMeals          ExpenseCategory = "meals"
	ExpenseCigarettes     ExpenseCategory = "cigarettes"
	ExpenseDataPlan       ExpenseCategory = "data_plan"
	ExpenseVehicleService ExpenseCategory = "vehicle_service"
	ExpenseHousehold      ExpenseCategory = "household"
	ExpenseElectricity    ExpenseCategory = "electricity"
	ExpenseEmergency      ExpenseCategory = "emergency"
	ExpenseOther          ExpenseCategory = "other"
)

var ExpenseCategories = []ExpenseCategory{
	ExpenseFuel,
	ExpenseParking,
	ExpenseMeals,
	ExpenseCigarettes,
	ExpenseDataPlan,
	ExpenseVehicleService,
	ExpenseHousehold,
	ExpenseElectricity,
	ExpenseEmergency,
	ExpenseOther,
}

func (c ExpenseCategory) Valid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Income запись о доходе, только добавляется
type Income struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Amount    float64    `json:"amount" db:"amount"`
	Type      IncomeType `json:"type" db:"type"`
	Note      string     `json:"note,omitempty" db:"note"`
	Date      time.Time  `json:"date" db:"date"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Expense запись о расходе, только добавляется
type Expense struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Amount    float64         `json:"amount" db:"amount"`
	Category  ExpenseCategory `json:"category" db:"category"`
	Note      string          `json:"note,omitempty" db:"note"`
	Date      time.Time       `json:"date" db:"date"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// RecordTotals сводка доходов и расходов за период
type RecordTotals struct {
	TotalIncome   float64                     `json:"total_income"`
	TotalExpenses float64                     `json:"total_expenses"`
	IncomeByType  map[IncomeType]float64      `json:"income_by_type"`
	ByCategory    map[ExpenseCategory]float64 `json:"by_category"`
	IncomeCount   int                         `json:"income_count"`
	ExpenseCount  int                         `json:"expense_count"`
}

// Net чистый результат за период
func (t *RecordTotals) Net() float64 {
	return t.TotalIncome - t.TotalExpenses
}
