package params

const (
	SecParam = 128
	SecBytes = SecParam / 8

	// StatParam is the statistical security margin s added to every blinding value.
	// A mask drawn from [0, 2ˡ⁺ˢ) hides an l-bit value up to a 2⁻ˢ statistical distance.
	StatParam = 40

	// L is the default bit length of compared operands.
	L = 32

	BitsBlumPrime = 1024
	BitsPaillier  = 2 * BitsBlumPrime // = 2048

	// BitsDGK is the size of the DGK modulus n = p⋅q.
	BitsDGK = 2048
	// DGKT is the bit length t of the secret primes v_p, v_q dividing p-1 and q-1.
	DGKT = 160
	// DGKRandomBits is the size of the exponent r in g^m⋅hʳ, taken as 2.5⋅t.
	DGKRandomBits = DGKT * 5 / 2 // = 400
	// DGKU is the bit length of the plaintext prime u.
	DGKU = 16
	// DGKMaxTable bounds the size of the decryption lookup table.
	DGKMaxTable = 1 << 20

	// CacheSize is the default number of blinding tuples kept ready.
	CacheSize = 16
	// CacheLowWater is the default number of ready tuples at which a refill starts.
	CacheLowWater = 4
)
