package authbridge

import (
	"encoding/json"
	"fmt"
)

// AuthType discriminates the authorization request variants.
type AuthType string

const (
	AuthTypeConnect           AuthType = "connect"
	AuthTypeAllowance         AuthType = "allowance"
	AuthTypeToken             AuthType = "token"
	AuthTypeSign              AuthType = "sign"
	AuthTypeSubscription      AuthType = "subscription"
	AuthTypeSignKeystone      AuthType = "signKeystone"
	AuthTypeSignature         AuthType = "signature"
	AuthTypeSignDataItem      AuthType = "signDataItem"
	AuthTypeBatchSignDataItem AuthType = "batchSignDataItem"
	AuthTypeUnlock            AuthType = "unlock"
)

// AuthTypes lists every supported type.
var AuthTypes = []AuthType{
	AuthTypeConnect,
	AuthTypeAllowance,
	AuthTypeToken,
	AuthTypeSign,
	AuthTypeSubscription,
	AuthTypeSignKeystone,
	AuthTypeSignature,
	AuthTypeSignDataItem,
	AuthTypeBatchSignDataItem,
	AuthTypeUnlock,
}

// Data is the type-specific payload of an authorization request.
type Data interface {
	AuthType() AuthType
}

// NewData returns an empty payload for the given type.
func NewData(authType AuthType) (Data, error) {
	switch authType {
	case AuthTypeConnect:
		return &ConnectData{}, nil
	case AuthTypeAllowance:
		return &AllowanceData{}, nil
	case AuthTypeToken:
		return &TokenData{}, nil
	case AuthTypeSign:
		return &SignData{}, nil
	case AuthTypeSubscription:
		return &SubscriptionData{}, nil
	case AuthTypeSignKeystone:
		return &SignKeystoneData{}, nil
	case AuthTypeSignature:
		return &SignatureData{}, nil
	case AuthTypeSignDataItem:
		return &SignDataItemData{}, nil
	case AuthTypeBatchSignDataItem:
		return &BatchSignDataItemData{}, nil
	case AuthTypeUnlock:
		return &UnlockData{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAuthType, authType)
}

// AppInfo describes the requesting application.
type AppInfo struct {
	Name string `json:"name,omitempty"`
	Logo string `json:"logo,omitempty"`
}

// Gateway describes the network gateway the app wants to use.
type Gateway struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

// ConnectData asks the user to grant permissions to an app.
type ConnectData struct {
	Permissions []string `json:"permissions"`
	AppInfo     AppInfo  `json:"appInfo"`
	Gateway     *Gateway `json:"gateway,omitempty"`
}

func (d *ConnectData) AuthType() AuthType { return AuthTypeConnect }

// AllowanceData asks the user to raise the spending allowance.
type AllowanceData struct {
	SpendingLimitReached bool `json:"spendingLimitReached"`
}

func (d *AllowanceData) AuthType() AuthType { return AuthTypeAllowance }

// TokenData asks the user to add a token.
type TokenData struct {
	TokenID   string `json:"tokenID"`
	TokenType string `json:"tokenType,omitempty"`
	Dre       string `json:"dre,omitempty"`
}

func (d *TokenData) AuthType() AuthType { return AuthTypeToken }

// SignData asks the user to sign a transaction.
type SignData struct {
	Address      string          `json:"address"`
	Transaction  json.RawMessage `json:"transaction"`
	CollectionID string          `json:"collectionID"`
}

func (d *SignData) AuthType() AuthType { return AuthTypeSign }

// SubscriptionData asks the user to approve a recurring payment.
type SubscriptionData struct {
	ArweaveAccountAddress     string  `json:"arweaveAccountAddress"`
	ApplicationName           string  `json:"applicationName"`
	SubscriptionName          string  `json:"subscriptionName"`
	SubscriptionManagementURL string  `json:"subscriptionManagementUrl"`
	SubscriptionFeeAmount     float64 `json:"subscriptionFeeAmount"`
	RecurringPaymentFrequency string  `json:"recurringPaymentFrequency"`
	NextPaymentDue            string  `json:"nextPaymentDue,omitempty"`
	SubscriptionStartDate     string  `json:"subscriptionStartDate,omitempty"`
	SubscriptionEndDate       string  `json:"subscriptionEndDate,omitempty"`
	ApplicationIcon           string  `json:"applicationIcon,omitempty"`
}

func (d *SubscriptionData) AuthType() AuthType { return AuthTypeSubscription }

// SignKeystoneData asks the user to sign through a keystone device.
type SignKeystoneData struct {
	CollectionID     string `json:"collectionID"`
	KeystoneSignType string `json:"keystoneSignType"`
	Data             []byte `json:"data,omitempty"`
}

func (d *SignKeystoneData) AuthType() AuthType { return AuthTypeSignKeystone }

// SignatureData asks the user to sign a raw message.
type SignatureData struct {
	Message []byte `json:"message"`
}

func (d *SignatureData) AuthType() AuthType { return AuthTypeSignature }

// SignDataItemData asks the user to sign a data item.
type SignDataItemData struct {
	Data json.RawMessage `json:"data"`
}

func (d *SignDataItemData) AuthType() AuthType { return AuthTypeSignDataItem }

// BatchSignDataItemData asks the user to sign a batch of data items.
type BatchSignDataItemData struct {
	Data json.RawMessage `json:"data"`
}

func (d *BatchSignDataItemData) AuthType() AuthType { return AuthTypeBatchSignDataItem }

// UnlockData asks the user to unlock the wallet.
type UnlockData struct{}

func (d *UnlockData) AuthType() AuthType { return AuthTypeUnlock }
