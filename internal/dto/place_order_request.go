package dto

type PlaceOrderRequest struct {
	Items           []PlaceOrderItem `json:"items"`
	ShippingAddress string           `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
}

type PlaceOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
