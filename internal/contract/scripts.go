package contract

// Compiled contract fragments. Header 0x10 marks a tree with segregated
// constants; the byte after it is the constant count.
const (
	// devFeeKey is the protocol fee recipient baked into every order contract.
	devFeeKey = "03a11d3028b9bc57b6ac724485e99960b89c278db6bab5d2b961b01aee29405a02"

	// nativeBondHash commits the native order contracts to the native bond.
	nativeBondHash = "803b0d443d2899bb5cbf2bdc496d5601677af2b1969f6e90775214c944b8680e"

	// orderFeeConstants: 0, 500, 100000, dev fee prop, 400, BigInt 0.
	orderFeeConstants = "0400" + "05e807" + "05c09a0c" + "08cd" + devFeeKey + "05a006" + "060100"

	orderTailConstants = "04020400043c04100400040401010402040601010101"

	orderBodyHead = "d80bd601b2a5730000d602e4c6a70408d603e4c6a70704d604e4c6a70505d605e30008" +
		"d606e67205d6077301d6087302d6097303d60a957206d801d60a7e72040683024406860272099d9c" +
		"7e720706720a7e7208068602e472059d9c7e730406720a7e72080683014406860272099d9c7e7207" +
		"067e7204067e720806d60b730595937306cbc27201d804d60c99"

	// Maturity expression compared against the bond's R7.
	onCloseMaturity     = "9aa37203" // HEIGHT + term
	fixedHeightMaturity = "7203"     // term as an absolute height

	orderBodyTail = "e4c672010704d60db2a5730700d60eb2720a730800d60f8c720e02d1ed96830b0193e4c6" +
		"7201040ec5a793e4c672010508720293e4c672010605e4c6a70605e6c67201080893db63087201db" +
		"6308a793c17201c1a7927203730990720c730a92720c730b93c2720dd0720293c1720d7204ed9591" +
		"720f720bd801d610b2a5730c009683020193c27210d08c720e01937ec1721006720f730d957206d8" +
		"02d610b2720a730e00d6118c72100295917211720bd801d612b2a5730f009683020193c27212d08c" +
		"721001937ec17212067211731073117202"

	bondConstants = "04000402"

	bondBody = "d805d601b2a5730000d602e4c6a70808d603db6308a7d604c1a7d605e4c6a705089592a3e4c6" +
		"a70704d19683040193c27201d0720293db63087201720393c17201720493e4c67201040ec5a7d801" +
		"d606b2a5730100ea02d19683060193c27201d0720293c17201e4c6a7060593e4c67201040ec5a793" +
		"c27206d0720593db63087206720393c1720672047205"
)

// Native denomination scripts.
var (
	nativeOrderOnClose = mustHex("1012" + orderFeeConstants + "0e20" + nativeBondHash +
		orderTailConstants + orderBodyHead + onCloseMaturity + orderBodyTail)

	nativeOrderFixedHeight = mustHex("1012" + orderFeeConstants + "0e20" + nativeBondHash +
		orderTailConstants + orderBodyHead + fixedHeightMaturity + orderBodyTail)

	nativeBond = mustHex("1002" + bondConstants + bondBody)
)

// Token denomination templates. Holes: bond = {token id};
// order = {token id, hash of the bond script for the same token}.
var (
	bondTemplate = newTemplate("bond",
		"1003"+"0e20",
		bondConstants+bondBody,
	)

	orderTemplate = newTemplate("order-on-close",
		"1013"+"0e20",
		orderFeeConstants+"0e20",
		orderTailConstants+orderBodyHead+onCloseMaturity+orderBodyTail,
	)
)
