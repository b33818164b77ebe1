package types

import "sort"

// NetworkID is the numeric EVM chain identifier
type NetworkID uint64

const (
	// NetworkMainnet represents Ethereum mainnet
	NetworkMainnet NetworkID = 1
	// NetworkSepolia represents the Sepolia test network
	NetworkSepolia NetworkID = 11155111
)

// Network describes a supported network and the endpoints used to read it
type Network struct {
	ID             NetworkID `json:"id"`
	Name           string    `json:"name"`
	Key            string    `json:"key"`
	NativeName     string    `json:"nativeName"`
	NativeSymbol   string    `json:"nativeSymbol"`
	NativeDecimals int       `json:"nativeDecimals"`
	ExplorerAPIURL string    `json:"explorerApiUrl"`
	ExplorerURL    string    `json:"explorerUrl"`
	// Transfers are quoted only where this is true; mainnet is read-only.
	TransfersEnabled bool `json:"transfersEnabled"`
}

// TxURL returns the explorer page of a transaction
func (n Network) TxURL(hash string) string {
	return n.ExplorerURL + "/tx/" + hash
}

var networks = map[NetworkID]Network{
	NetworkMainnet: {
		ID:             NetworkMainnet,
		Name:           "Ethereum",
		Key:            "mainnet",
		NativeName:     "Ether",
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
		ExplorerAPIURL: "https://api.etherscan.io/api",
		ExplorerURL:    "https://etherscan.io",
	},
	NetworkSepolia: {
		ID:               NetworkSepolia,
		Name:             "Sepolia",
		Key:              "sepolia",
		NativeName:       "Sepolia Ether",
		NativeSymbol:     "ETH",
		NativeDecimals:   18,
		ExplorerAPIURL:   "https://api-sepolia.etherscan.io/api",
		ExplorerURL:      "https://sepolia.etherscan.io",
		TransfersEnabled: true,
	},
}

// LookupNetwork returns the network registered under id
func LookupNetwork(id NetworkID) (Network, bool) {
	n, ok := networks[id]
	return n, ok
}

// LookupNetworkByKey resolves a network from its short key ("mainnet", "sepolia")
func LookupNetworkByKey(key string) (Network, bool) {
	for _, n := range networks {
		if n.Key == key {
			return n, true
		}
	}
	return Network{}, false
}

// Networks returns every supported network, Sepolia first as in the network selector
func Networks() []Network {
	list := make([]Network, 0, len(networks))
	for _, n := range networks {
		list = append(list, n)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID > list[j].ID
	})
	return list
}
