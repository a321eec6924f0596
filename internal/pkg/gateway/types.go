package gateway

import (
	"encoding/xml"
)

// 网关 XML 报文结构
// 协议字段命名以网关文档为准，解析时保持防御性（见 client.go 的结果判定）

type merchantAuthentication struct {
	Name           string `xml:"name"`
	TransactionKey string `xml:"transactionKey"`
}

type creditCardXML struct {
	CardNumber     string `xml:"cardNumber"`
	ExpirationDate string `xml:"expirationDate"` // YYYY-MM
	CardCode       string `xml:"cardCode,omitempty"`
}

type paymentXML struct {
	CreditCard creditCardXML `xml:"creditCard"`
}

type billToXML struct {
	FirstName string `xml:"firstName,omitempty"`
	LastName  string `xml:"lastName,omitempty"`
	Address   string `xml:"address,omitempty"`
	City      string `xml:"city,omitempty"`
	State     string `xml:"state,omitempty"`
	Zip       string `xml:"zip,omitempty"`
	Country   string `xml:"country,omitempty"`
}

type lineItemXML struct {
	ItemID      string `xml:"itemId"`
	Name        string `xml:"name"`
	Description string `xml:"description,omitempty"`
	Quantity    int    `xml:"quantity"`
	UnitPrice   string `xml:"unitPrice"`
}

type orderXML struct {
	InvoiceNumber string `xml:"invoiceNumber,omitempty"`
}

type createTransactionRequest struct {
	XMLName            xml.Name               `xml:"createTransactionRequest"`
	MerchantAuth       merchantAuthentication `xml:"merchantAuthentication"`
	RefID              string                 `xml:"refId,omitempty"`
	TransactionRequest transactionRequestXML  `xml:"transactionRequest"`
}

type transactionRequestXML struct {
	TransactionType string        `xml:"transactionType"`
	Amount          string        `xml:"amount"`
	Payment         paymentXML    `xml:"payment"`
	Order           orderXML      `xml:"order"`
	LineItems       []lineItemXML `xml:"lineItems>lineItem"`
	BillTo          billToXML     `xml:"billTo"`
}

type messageXML struct {
	Code string `xml:"code"`
	Text string `xml:"text"`
}

type messagesXML struct {
	ResultCode string       `xml:"resultCode"` // Ok, Error
	Messages   []messageXML `xml:"message"`
}

type errorXML struct {
	ErrorCode string `xml:"errorCode"`
	ErrorText string `xml:"errorText"`
}

type transactionResponseXML struct {
	ResponseCode string     `xml:"responseCode"` // 1=approved, 2=declined, 3=error
	AuthCode     string     `xml:"authCode"`
	TransID      string     `xml:"transId"`
	Errors       []errorXML `xml:"errors>error"`
}

type createTransactionResponse struct {
	XMLName             xml.Name               `xml:"createTransactionResponse"`
	Messages            messagesXML            `xml:"messages"`
	TransactionResponse transactionResponseXML `xml:"transactionResponse"`
}

type paymentScheduleXML struct {
	IntervalLength   int    `xml:"interval>length"`
	IntervalUnit     string `xml:"interval>unit"` // days, months
	StartDate        string `xml:"startDate"`     // YYYY-MM-DD
	TotalOccurrences int    `xml:"totalOccurrences"`
}

type subscriptionXML struct {
	Name            string             `xml:"name"`
	PaymentSchedule paymentScheduleXML `xml:"paymentSchedule"`
	Amount          string             `xml:"amount"`
	Payment         paymentXML         `xml:"payment"`
	Order           orderXML           `xml:"order"`
	BillTo          billToXML          `xml:"billTo"`
}

type createSubscriptionRequest struct {
	XMLName      xml.Name               `xml:"createSubscriptionRequest"`
	MerchantAuth merchantAuthentication `xml:"merchantAuthentication"`
	RefID        string                 `xml:"refId,omitempty"`
	Subscription subscriptionXML        `xml:"subscription"`
}

type createSubscriptionResponse struct {
	XMLName        xml.Name    `xml:"createSubscriptionResponse"`
	Messages       messagesXML `xml:"messages"`
	SubscriptionID string      `xml:"subscriptionId"`
}

type cancelSubscriptionRequest struct {
	XMLName        xml.Name               `xml:"cancelSubscriptionRequest"`
	MerchantAuth   merchantAuthentication `xml:"merchantAuthentication"`
	SubscriptionID string                 `xml:"subscriptionId"`
}

type cancelSubscriptionResponse struct {
	XMLName  xml.Name    `xml:"cancelSubscriptionResponse"`
	Messages messagesXML `xml:"messages"`
}

type getTransactionDetailsRequest struct {
	XMLName      xml.Name               `xml:"getTransactionDetailsRequest"`
	MerchantAuth merchantAuthentication `xml:"merchantAuthentication"`
	TransID      string                 `xml:"transId"`
}

type transactionDetailsXML struct {
	TransID            string   `xml:"transId"`
	ResponseCode       string   `xml:"responseCode"`
	AuthAmount         string   `xml:"authAmount"`
	Order              orderXML `xml:"order"`
	CustomerEmail      string   `xml:"customer>email"`
	SubscriptionID     string   `xml:"subscription>id"`
	SubscriptionPayNum int      `xml:"subscription>payNum"`
}

type getTransactionDetailsResponse struct {
	XMLName     xml.Name              `xml:"getTransactionDetailsResponse"`
	Messages    messagesXML           `xml:"messages"`
	Transaction transactionDetailsXML `xml:"transaction"`
}
