package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// Decimal carries monetary amounts without float rounding; the backend
// serializes them as JSON numbers.
type Decimal = json.Number

// Date is a calendar date serialized as "2006-01-02", as the backend emits
// for recurring-transaction schedules.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw, err)
	}
	d.Time = parsed
	return nil
}

type Account struct {
	ID              int64     `json:"id"`
	WorkspaceID     int64     `json:"workspace_id"`
	Name            string    `json:"name"`
	Color           string    `json:"color"`
	Icon            string    `json:"icon"`
	CurrencyCode    string    `json:"currency_code"`
	ShortIdentifier *string   `json:"short_identifier"`
	CreatedAt       time.Time `json:"created_at"`
}

type AccountCreate struct {
	Name            string  `json:"name"`
	Color           string  `json:"color"`
	Icon            string  `json:"icon"`
	CurrencyCode    string  `json:"currency_code"`
	ShortIdentifier *string `json:"short_identifier,omitempty"`
}

type AccountUpdate struct {
	Name            *string `json:"name,omitempty"`
	Color           *string `json:"color,omitempty"`
	Icon            *string `json:"icon,omitempty"`
	CurrencyCode    *string `json:"currency_code,omitempty"`
	ShortIdentifier *string `json:"short_identifier,omitempty"`
}

type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

type Category struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	Name      string       `json:"name"`
	Color     string       `json:"color"`
	Icon      string       `json:"icon"`
	Type      CategoryType `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
}

type CategoryCreate struct {
	Name  string       `json:"name"`
	Color string       `json:"color"`
	Icon  string       `json:"icon"`
	Type  CategoryType `json:"type"`
}

type CategoryUpdate struct {
	Name  *string       `json:"name,omitempty"`
	Color *string       `json:"color,omitempty"`
	Icon  *string       `json:"icon,omitempty"`
	Type  *CategoryType `json:"type,omitempty"`
}

type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

type Transaction struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Type            TransactionType `json:"type"`
	AccountID       int64           `json:"account_id"`
	TargetAccountID *int64          `json:"target_account_id"`
	CategoryID      *int64          `json:"category_id"`
	Amount          Decimal         `json:"amount"`
	ConvertedAmount *Decimal        `json:"converted_amount"`
	ExchangeRate    *Decimal        `json:"exchange_rate"`
	Description     *string         `json:"description"`
	TransactionDate time.Time       `json:"transaction_date"`
	ShoppingListID  *int64          `json:"shopping_list_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

type TransactionCreate struct {
	Type            TransactionType `json:"type"`
	AccountID       int64           `json:"account_id"`
	TargetAccountID *int64          `json:"target_account_id,omitempty"`
	CategoryID      *int64          `json:"category_id,omitempty"`
	Amount          Decimal         `json:"amount"`
	Description     *string         `json:"description,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
}

type TransactionUpdate struct {
	Amount          *Decimal   `json:"amount,omitempty"`
	Description     *string    `json:"description,omitempty"`
	TransactionDate *time.Time `json:"transaction_date,omitempty"`
	CategoryID      *int64     `json:"category_id,omitempty"`
}

type AccountBalance struct {
	AccountID      int64   `json:"account_id"`
	AccountName    string  `json:"account_name"`
	CurrencyCode   string  `json:"currency_code"`
	CurrencySymbol string  `json:"currency_symbol"`
	Balance        Decimal `json:"balance"`
}

type TotalBalance struct {
	TotalBalance Decimal `json:"total_balance"`
	CurrencyCode string  `json:"currency_code"`
}

type CategorySummary struct {
	CategoryID    int64   `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	CategoryIcon  string  `json:"category_icon"`
	CategoryColor string  `json:"category_color"`
	Amount        Decimal `json:"amount"`
}

type PeriodStatistics struct {
	StartDate         time.Time         `json:"start_date"`
	EndDate           time.Time         `json:"end_date"`
	TotalIncome       Decimal           `json:"total_income"`
	TotalExpense      Decimal           `json:"total_expense"`
	NetChange         Decimal           `json:"net_change"`
	IncomeByCategory  []CategorySummary `json:"income_by_category"`
	ExpenseByCategory []CategorySummary `json:"expense_by_category"`
}

type ShoppingListStatus string

const (
	ShoppingDraft     ShoppingListStatus = "draft"
	ShoppingConfirmed ShoppingListStatus = "confirmed"
	ShoppingCompleted ShoppingListStatus = "completed"
)

type ShoppingItem struct {
	ID             int64    `json:"id"`
	ShoppingListID int64    `json:"shopping_list_id"`
	Name           string   `json:"name"`
	Quantity       int      `json:"quantity"`
	Price          *Decimal `json:"price"`
	IsChecked      bool     `json:"is_checked"`
	TotalPrice     *Decimal `json:"total_price"`
}

type ShoppingItemCreate struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    *Decimal `json:"price,omitempty"`
}

type ShoppingItemUpdate struct {
	Name      *string  `json:"name,omitempty"`
	Quantity  *int     `json:"quantity,omitempty"`
	Price     *Decimal `json:"price,omitempty"`
	IsChecked *bool    `json:"is_checked,omitempty"`
}

type ShoppingList struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	AccountID  int64              `json:"account_id"`
	CategoryID int64              `json:"category_id"`
	Status     ShoppingListStatus `json:"status"`
	Items      []ShoppingItem     `json:"items"`
	CreatedAt  time.Time          `json:"created_at"`
}

type ShoppingListCreate struct {
	Name       string               `json:"name"`
	AccountID  int64                `json:"account_id"`
	CategoryID int64                `json:"category_id"`
	Items      []ShoppingItemCreate `json:"items"`
}

type ShoppingListUpdate struct {
	Name       *string `json:"name,omitempty"`
	AccountID  *int64  `json:"account_id,omitempty"`
	CategoryID *int64  `json:"category_id,omitempty"`
}

type TemplateItem struct {
	ID              int64    `json:"id"`
	TemplateID      int64    `json:"template_id"`
	Name            string   `json:"name"`
	DefaultQuantity int      `json:"default_quantity"`
	DefaultPrice    *Decimal `json:"default_price"`
}

type TemplateItemCreate struct {
	Name            string   `json:"name"`
	DefaultQuantity int      `json:"default_quantity"`
	DefaultPrice    *Decimal `json:"default_price,omitempty"`
}

type TemplateItemUpdate struct {
	Name            *string  `json:"name,omitempty"`
	DefaultQuantity *int     `json:"default_quantity,omitempty"`
	DefaultPrice    *Decimal `json:"default_price,omitempty"`
}

type ShoppingTemplate struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name"`
	Color             string         `json:"color"`
	Icon              string         `json:"icon"`
	DefaultAccountID  *int64         `json:"default_account_id"`
	DefaultCategoryID *int64         `json:"default_category_id"`
	Items             []TemplateItem `json:"items"`
	CreatedAt         time.Time      `json:"created_at"`
}

type ShoppingTemplateCreate struct {
	Name              string               `json:"name"`
	Color             string               `json:"color"`
	Icon              string               `json:"icon"`
	DefaultAccountID  *int64               `json:"default_account_id,omitempty"`
	DefaultCategoryID *int64               `json:"default_category_id,omitempty"`
	Items             []TemplateItemCreate `json:"items,omitempty"`
}

type ShoppingTemplateUpdate struct {
	Name              *string `json:"name,omitempty"`
	Color             *string `json:"color,omitempty"`
	Icon              *string `json:"icon,omitempty"`
	DefaultAccountID  *int64  `json:"default_account_id,omitempty"`
	DefaultCategoryID *int64  `json:"default_category_id,omitempty"`
}

type RecurringFrequency string

const (
	RecurringDaily   RecurringFrequency = "daily"
	RecurringWeekly  RecurringFrequency = "weekly"
	RecurringMonthly RecurringFrequency = "monthly"
)

type RecurringTransaction struct {
	ID                int64              `json:"id"`
	WorkspaceID       int64              `json:"workspace_id"`
	Type              TransactionType    `json:"type"`
	AccountID         int64              `json:"account_id"`
	CategoryID        int64              `json:"category_id"`
	Amount            Decimal            `json:"amount"`
	Description       *string            `json:"description"`
	Frequency         RecurringFrequency `json:"frequency"`
	DayOfWeek         *int               `json:"day_of_week"`
	DayOfMonth        *int               `json:"day_of_month"`
	StartDate         Date               `json:"start_date"`
	EndDate           *Date              `json:"end_date"`
	IsActive          bool               `json:"is_active"`
	NextExecutionDate Date               `json:"next_execution_date"`
	LastExecutedAt    *time.Time         `json:"last_executed_at"`
	CreatedAt         time.Time          `json:"created_at"`
}

type RecurringTransactionCreate struct {
	Type        TransactionType    `json:"type"`
	AccountID   int64              `json:"account_id"`
	CategoryID  int64              `json:"category_id"`
	Amount      Decimal            `json:"amount"`
	Description *string            `json:"description,omitempty"`
	Frequency   RecurringFrequency `json:"frequency"`
	DayOfWeek   *int               `json:"day_of_week,omitempty"`
	DayOfMonth  *int               `json:"day_of_month,omitempty"`
	StartDate   Date               `json:"start_date"`
	EndDate     *Date              `json:"end_date,omitempty"`
}

type RecurringTransactionUpdate struct {
	Amount      *Decimal            `json:"amount,omitempty"`
	Description *string             `json:"description,omitempty"`
	CategoryID  *int64              `json:"category_id,omitempty"`
	Frequency   *RecurringFrequency `json:"frequency,omitempty"`
	DayOfWeek   *int                `json:"day_of_week,omitempty"`
	DayOfMonth  *int                `json:"day_of_month,omitempty"`
	EndDate     *Date               `json:"end_date,omitempty"`
	IsActive    *bool               `json:"is_active,omitempty"`
}

type Currency struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}

type ExchangeRate struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Rate         Decimal `json:"rate"`
}

type WorkspaceMember struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type WorkspaceCreate struct {
	Name string `json:"name"`
}

type WorkspaceUpdate struct {
	Name string `json:"name"`
}

type UserUpdate struct {
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
}
